package scraper

import "strings"

// baiduDistricts maps city names to administrative division codes used by
// the Baidu jobs API.
var baiduDistricts = map[string]string{
	"北京": "110000", "上海": "310000", "广州": "440100",
	"深圳": "440300", "杭州": "330100", "成都": "510100",
	"武汉": "420100", "南京": "320100", "西安": "610100",
	"长沙": "430100", "重庆": "500000", "苏州": "320500",
	"天津": "120000", "合肥": "340100", "郑州": "410100",
	"东莞": "441900", "佛山": "440600", "珠海": "440400",
	"厦门": "350200", "青岛": "370200", "大连": "210200",
	"宁波": "330200", "济南": "370100", "福州": "350100",
	"昆明": "530100", "贵阳": "520100", "南宁": "450100",
	"太原": "140100", "石家庄": "130100", "哈尔滨": "230100",
	"沈阳": "210100", "长春": "220100", "兰州": "620100",
}

// liepinCities maps city names to Liepin "dq" codes.
var liepinCities = map[string]string{
	"深圳": "050090", "北京": "010000", "上海": "020000", "广州": "050020",
	"杭州": "070020", "成都": "280020", "武汉": "170020", "南京": "060020",
}

// cityCode looks up a city, tolerating a "市" suffix and district
// qualifiers such as "深圳-南山区".
func cityCode(table map[string]string, location string) (string, bool) {
	loc := strings.TrimSpace(location)
	if i := strings.IndexAny(loc, "-·"); i > 0 {
		loc = loc[:i]
	}
	loc = strings.TrimSuffix(loc, "市")
	code, ok := table[loc]
	return code, ok
}
