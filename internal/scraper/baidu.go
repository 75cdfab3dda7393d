package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"

	"go.uber.org/zap"

	"jobmate/jobsearch-service/internal/model"
)

const (
	baiduPageSize = 20
	baiduMaxPages = 3
	baiduMinBatch = 5 // a shorter page means results are exhausted
	baiduPlatform = "百度百聘"
)

var emTag = regexp.MustCompile(`</?em>`)

// BaiduClient queries the Baidu jobs JSON API.
type BaiduClient struct {
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

// NewBaiduClient constructs a client against baseURL.
func NewBaiduClient(baseURL string, client *http.Client, log *zap.Logger) *BaiduClient {
	return &BaiduClient{baseURL: baseURL, client: client, log: log.Named("baidu")}
}

func (c *BaiduClient) Name() string { return "baidu" }

type baiduResponse struct {
	Status int `json:"status"`
	Data   *struct {
		List  []baiduJob `json:"list"`
		Total int        `json:"total"`
	} `json:"data"`
}

type baiduJob struct {
	JobName   string `json:"jobName"`
	Company   string `json:"company"`
	City      string `json:"city"`
	Salary    string `json:"salary"`
	Exp       string `json:"exp"`
	Edu       string `json:"edu"`
	DetailURL string `json:"detailUrl"`
	JumpURL   string `json:"jumpUrl"`
	Source    string `json:"source"`
}

// Search pages through results until limit is filled, a short page is
// returned, or baiduMaxPages is reached.
func (c *BaiduClient) Search(ctx context.Context, keyword, location string, limit int) ([]model.Listing, error) {
	district, _ := cityCode(baiduDistricts, location)

	var out []model.Listing
	for page := 1; page <= baiduMaxPages && len(out) < limit; page++ {
		batch, total, err := c.fetchPage(ctx, keyword, district, page)
		if err != nil {
			return out, fmt.Errorf("page %d: %w", page, err)
		}
		c.log.Info("page fetched",
			zap.String("keyword", keyword),
			zap.String("district", district),
			zap.Int("page", page),
			zap.Int("count", len(batch)),
			zap.Int("total", total),
		)
		out = append(out, batch...)
		if len(batch) < baiduMinBatch {
			break
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (c *BaiduClient) fetchPage(ctx context.Context, keyword, district string, page int) ([]model.Listing, int, error) {
	params := url.Values{}
	params.Set("q", keyword)
	params.Set("page", strconv.Itoa(page))
	params.Set("pagesize", strconv.Itoa(baiduPageSize))
	params.Set("district", district)
	params.Set("salaryrange", "")

	body, err := get(ctx, c.client, c.baseURL+"?"+params.Encode(), map[string]string{
		"Accept":  "application/json, text/plain, */*",
		"Referer": "https://yiqifu.baidu.com/",
	})
	if err != nil {
		return nil, 0, err
	}

	var resp baiduResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, 0, fmt.Errorf("json unmarshal: %w", err)
	}
	if resp.Status != 0 || resp.Data == nil {
		return nil, 0, fmt.Errorf("baidu status %d", resp.Status)
	}

	listings := make([]model.Listing, 0, len(resp.Data.List))
	for _, j := range resp.Data.List {
		listings = append(listings, j.toListing())
	}
	return listings, resp.Data.Total, nil
}

func (j baiduJob) toListing() model.Listing {
	title := orDefault(emTag.ReplaceAllString(j.JobName, ""), model.UnknownTitle)
	sourceURL := j.DetailURL
	if sourceURL == "" {
		sourceURL = j.JumpURL
	}
	exp := orDefault(j.Exp, model.AnyRequirement)
	edu := orDefault(j.Edu, model.AnyRequirement)
	salary := orDefault(j.Salary, model.NegotiableSalary)

	return normalize(model.Listing{
		Title:       title,
		Company:     j.Company,
		Location:    j.City,
		SalaryRange: salary,
		Description: fmt.Sprintf("职位: %s\n公司: %s\n地点: %s\n薪资: %s\n学历: %s\n经验: %s",
			title, j.Company, j.City, salary, edu, exp),
		SourceURL:          sourceURL,
		DetailURL:          j.DetailURL,
		SourcePlatform:     orDefault(j.Source, baiduPlatform),
		ExperienceRequired: exp,
		Education:          edu,
	})
}
