package publer

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// AnalyticsService accesses the analytics endpoints.
//
// The endpoint shapes here are the remote API's least consistent: an
// account scope is an optional *path* segment (not a query parameter as
// with accounts), some collections arrive under alternate envelope keys,
// and insight arrays occasionally interleave error strings with records.
// Those quirks are preserved and documented per method rather than papered
// over.
type AnalyticsService struct {
	service
}

// Chart describes one available analytics chart.
type Chart struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Type         string   `json:"type"`
	Group        string   `json:"group"`
	ChartType    string   `json:"chart_type"`
	AvailableFor []string `json:"available_for"`
}

func (c Chart) validate() error {
	if c.ID == "" {
		return missingField("id")
	}
	return nil
}

// ChartData is the data set behind one chart.
type ChartData struct {
	ChartID string
	Data    map[string]any
	Period  map[string]string
}

// PostInsight is the performance of one published post.
type PostInsight struct {
	PostID      string     `json:"post_id"`
	Text        string     `json:"text"`
	PublishedAt *time.Time `json:"published_at"`
	AccountType string     `json:"account_type"`
	AccountName string     `json:"account_name"`

	Impressions *int `json:"impressions"`
	Reach       *int `json:"reach"`
	Engagement  *int `json:"engagement"`
	Likes       *int `json:"likes"`
	Comments    *int `json:"comments"`
	Shares      *int `json:"shares"`
	Clicks      *int `json:"clicks"`
	Saves       *int `json:"saves"`

	EngagementRate *float64 `json:"engagement_rate"`
	CTR            *float64 `json:"ctr"`
}

func (p PostInsight) validate() error {
	if p.PostID == "" {
		return missingField("post_id")
	}
	return nil
}

// HashtagPerformance aggregates metrics for one hashtag. Every field is
// optional on the wire.
type HashtagPerformance struct {
	Hashtag      string           `json:"hashtag"`
	Posts        *int             `json:"posts"`
	PostsCount   *int             `json:"posts_count"`
	Reach        *int             `json:"reach"`
	Engagement   *int             `json:"engagement"`
	Likes        *int             `json:"likes"`
	Comments     *int             `json:"comments"`
	Shares       *int             `json:"shares"`
	VideoViews   *int             `json:"video_views"`
	LinkClicks   *int             `json:"link_clicks"`
	PostClicks   *int             `json:"post_clicks"`
	Saves        *int             `json:"saves"`
	HashtagScore *float64         `json:"hashtag_score"`
	RecentPosts  []map[string]any `json:"recent_posts"`
}

func (h HashtagPerformance) validate() error { return nil }

// MemberPerformance aggregates metrics for one team member.
type MemberPerformance struct {
	MemberID          string         `json:"member_id"`
	Name              string         `json:"name"`
	Email             string         `json:"email"`
	PostsCount        *int           `json:"posts_count"`
	Reach             *int           `json:"reach"`
	Engagement        *int           `json:"engagement"`
	Impressions       *int           `json:"impressions"`
	AvgEngagementRate *float64       `json:"avg_engagement_rate"`
	TopPost           map[string]any `json:"top_post"`
}

func (m MemberPerformance) validate() error { return nil }

// Competitor is a tracked competitor account.
type Competitor struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Platform string     `json:"platform"`
	Handle   string     `json:"handle"`
	AddedAt  *time.Time `json:"added_at"`
}

func (c Competitor) validate() error {
	if c.ID == "" {
		return missingField("id")
	}
	if c.Name == "" {
		return missingField("name")
	}
	if c.Platform == "" {
		return missingField("platform")
	}
	return nil
}

// CompetitorAnalysis is the performance of one competitor over a period.
type CompetitorAnalysis struct {
	CompetitorID    string   `json:"competitor_id"`
	Name            string   `json:"name"`
	Platform        string   `json:"platform"`
	Followers       *int     `json:"followers"`
	FollowersGrowth *int     `json:"followers_growth"`
	PostsCount      *int     `json:"posts_count"`
	AvgEngagement   *float64 `json:"avg_engagement"`
	EngagementRate  *float64 `json:"engagement_rate"`
	TotalReach      *int     `json:"total_reach"`
}

func (c CompetitorAnalysis) validate() error {
	if c.CompetitorID == "" {
		return missingField("competitor_id")
	}
	if c.Name == "" {
		return missingField("name")
	}
	if c.Platform == "" {
		return missingField("platform")
	}
	return nil
}

// ChartDataOptions scopes ChartData. AccountID here is a query parameter.
type ChartDataOptions struct {
	From      string // ISO 8601
	To        string // ISO 8601
	AccountID string
}

// InsightOptions scopes PostInsights. When AccountID is set it becomes a
// path segment: /analytics/{accountID}/post_insights.
type InsightOptions struct {
	AccountID string
	From      string // YYYY-MM-DD
	To        string // YYYY-MM-DD
	SortBy    string // default scheduled_at
	SortType  string // ASC or DESC; default DESC
	Page      int    // 0-based
}

// HashtagOptions scopes HashtagAnalysis.
type HashtagOptions struct {
	AccountID string
	From      string
	To        string
	SortBy    string // default posts
	SortType  string // default DESC
	Page      int
	Query     string // substring filter on hashtag text
	MemberID  string
}

// BestTimeOptions scopes BestTimes.
type BestTimeOptions struct {
	AccountID    string
	Competitors  bool
	CompetitorID string
}

// PeriodOptions is a bare from/to window.
type PeriodOptions struct {
	From string
	To   string
}

// AvailableCharts lists the charts the credential may query.
func (s *AnalyticsService) AvailableCharts(ctx context.Context) ([]Chart, error) {
	raw, err := s.get(ctx, "/analytics/charts", nil)
	if err != nil {
		return nil, err
	}
	return decodeRecords[Chart](records(raw, "charts"), false)
}

// ChartData fetches the data set of one chart. A bare-array response is
// wrapped under a "values" key so the result is always a map.
func (s *AnalyticsService) ChartData(ctx context.Context, chartID string, opts *ChartDataOptions) (*ChartData, error) {
	query := url.Values{}
	period := map[string]string{}
	if opts != nil {
		if opts.From != "" {
			query.Set("from", opts.From)
			period["from"] = opts.From
		}
		if opts.To != "" {
			query.Set("to", opts.To)
			period["to"] = opts.To
		}
		if opts.AccountID != "" {
			query.Set("account_id", opts.AccountID)
		}
	}

	raw, err := s.get(ctx, "/analytics/charts/"+chartID, query)
	if err != nil {
		return nil, err
	}

	cd := &ChartData{ChartID: chartID, Period: period}
	switch t := raw.(type) {
	case map[string]any:
		cd.Data = t
	case []any:
		cd.Data = map[string]any{"values": t}
	default:
		cd.Data = map[string]any{}
	}
	return cd, nil
}

// PostInsights returns per-post performance, newest first by default.
// The API is known to answer this endpoint with a bare error string for
// some account types; such responses yield an empty result, and non-object
// elements inside a result array are skipped.
func (s *AnalyticsService) PostInsights(ctx context.Context, opts *InsightOptions) ([]PostInsight, error) {
	query, accountID := insightQuery(opts)
	raw, err := s.get(ctx, analyticsPath(accountID, "post_insights"), query)
	if err != nil {
		return nil, err
	}
	items, ok := collection(raw, "insights", "data")
	if !ok {
		return nil, nil
	}
	return decodeRecords[PostInsight](items, true)
}

// HashtagAnalysis returns per-hashtag performance.
func (s *AnalyticsService) HashtagAnalysis(ctx context.Context, opts *HashtagOptions) ([]HashtagPerformance, error) {
	query := url.Values{}
	query.Set("sort_by", "posts")
	query.Set("sort_type", "DESC")
	query.Set("page", "0")
	accountID := ""
	if opts != nil {
		accountID = opts.AccountID
		if opts.SortBy != "" {
			query.Set("sort_by", opts.SortBy)
		}
		if opts.SortType != "" {
			query.Set("sort_type", opts.SortType)
		}
		query.Set("page", strconv.Itoa(opts.Page))
		if opts.From != "" {
			query.Set("from", opts.From)
		}
		if opts.To != "" {
			query.Set("to", opts.To)
		}
		if opts.Query != "" {
			query.Set("query", opts.Query)
		}
		if opts.MemberID != "" {
			query.Set("member_id", opts.MemberID)
		}
	}

	raw, err := s.get(ctx, analyticsPath(accountID, "hashtag_insights"), query)
	if err != nil {
		return nil, err
	}
	items, ok := collection(raw, "records", "hashtags")
	if !ok {
		return nil, nil
	}
	return decodeRecords[HashtagPerformance](items, true)
}

// BestTimes returns hourly posting scores keyed by day of week
// (Monday..Sunday), 24 scores per day. Both bounds are required by the
// API.
func (s *AnalyticsService) BestTimes(ctx context.Context, from, to string, opts *BestTimeOptions) (map[string][]float64, error) {
	query := url.Values{}
	query.Set("from", from)
	query.Set("to", to)
	accountID := ""
	if opts != nil {
		accountID = opts.AccountID
		if opts.Competitors {
			query.Set("competitors", "true")
		}
		if opts.CompetitorID != "" {
			query.Set("competitor_id", opts.CompetitorID)
		}
	}

	raw, err := s.get(ctx, analyticsPath(accountID, "best_times"), query)
	if err != nil {
		return nil, err
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return map[string][]float64{}, nil
	}
	out := make(map[string][]float64, len(obj))
	for day, hours := range obj {
		arr, ok := hours.([]any)
		if !ok {
			continue
		}
		scores := make([]float64, 0, len(arr))
		for _, h := range arr {
			if f, ok := h.(float64); ok {
				scores = append(scores, f)
			}
		}
		out[day] = scores
	}
	return out, nil
}

// MemberPerformance returns team member metrics for a period.
func (s *AnalyticsService) MemberPerformance(ctx context.Context, opts *PeriodOptions) ([]MemberPerformance, error) {
	query := url.Values{}
	if opts != nil {
		if opts.From != "" {
			query.Set("from", opts.From)
		}
		if opts.To != "" {
			query.Set("to", opts.To)
		}
	}
	raw, err := s.get(ctx, "/analytics/members", query)
	if err != nil {
		return nil, err
	}
	return decodeRecords[MemberPerformance](records(raw, "members"), false)
}

// ListCompetitors returns the tracked competitor accounts.
func (s *AnalyticsService) ListCompetitors(ctx context.Context) ([]Competitor, error) {
	raw, err := s.get(ctx, "/analytics/competitors", nil)
	if err != nil {
		return nil, err
	}
	return decodeRecords[Competitor](records(raw, "competitors"), false)
}

// CompetitorAnalysis returns competitor performance, optionally limited
// to specific competitor ids (comma-joined query parameter).
func (s *AnalyticsService) CompetitorAnalysis(ctx context.Context, competitorIDs []string, opts *PeriodOptions) ([]CompetitorAnalysis, error) {
	query := url.Values{}
	if len(competitorIDs) > 0 {
		query.Set("competitor_ids", strings.Join(competitorIDs, ","))
	}
	if opts != nil {
		if opts.From != "" {
			query.Set("from", opts.From)
		}
		if opts.To != "" {
			query.Set("to", opts.To)
		}
	}
	raw, err := s.get(ctx, "/analytics/competitors/analysis", query)
	if err != nil {
		return nil, err
	}
	return decodeRecords[CompetitorAnalysis](records(raw, "analysis"), false)
}

// analyticsPath builds the account-scoped analytics path; the account id
// is a path segment when present.
func analyticsPath(accountID, leaf string) string {
	if accountID != "" {
		return "/analytics/" + accountID + "/" + leaf
	}
	return "/analytics/" + leaf
}

func insightQuery(opts *InsightOptions) (url.Values, string) {
	query := url.Values{}
	query.Set("sort_by", "scheduled_at")
	query.Set("sort_type", "DESC")
	query.Set("page", "0")
	if opts == nil {
		return query, ""
	}
	if opts.SortBy != "" {
		query.Set("sort_by", opts.SortBy)
	}
	if opts.SortType != "" {
		query.Set("sort_type", opts.SortType)
	}
	query.Set("page", strconv.Itoa(opts.Page))
	if opts.From != "" {
		query.Set("from", opts.From)
	}
	if opts.To != "" {
		query.Set("to", opts.To)
	}
	return query, opts.AccountID
}
