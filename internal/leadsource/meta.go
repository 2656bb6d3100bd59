// Package leadsource fetches submitted leads from the Meta Lead Ads Graph
// API. Lead forms use free-form field names chosen by whoever built the form,
// so the raw field_data is mapped onto a fixed record shape with ordered
// matching rules.
package leadsource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"callops_backend/platform/apperr"
	"callops_backend/platform/logger"
)

const defaultGraphURL = "https://graph.facebook.com"

// Config is the subset of application config the lead source needs. It shares
// the Graph API credentials with the conversion sink.
type Config interface {
	GetMetaGraphVersion() string
	GetMetaAccessToken() string
	IsMetaEnabled() bool
}

// Client fetches leads from the Lead Ads Graph API.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	graphVersion string
	accessToken  string
	enabled      bool
	log          *logger.Logger
}

// New creates a new Lead Ads client.
func New(cfg Config, log *logger.Logger) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		baseURL:      defaultGraphURL,
		graphVersion: cfg.GetMetaGraphVersion(),
		accessToken:  cfg.GetMetaAccessToken(),
		enabled:      cfg.IsMetaEnabled(),
		log:          log,
	}
}

// LeadRecord is one submitted lead, with the common identity fields promoted
// out of the raw form data. Fields keeps every raw form field by name.
type LeadRecord struct {
	ID          string
	Name        string
	Email       string
	Phone       string
	CreatedTime time.Time
	Fields      map[string]string
}

// graphTime accepts both RFC3339 and the Graph API's "+0000" offset format.
type graphTime struct {
	time.Time
}

func (t *graphTime) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		parsed, err = time.Parse("2006-01-02T15:04:05-0700", raw)
		if err != nil {
			return fmt.Errorf("parse created_time %q: %w", raw, err)
		}
	}
	t.Time = parsed
	return nil
}

type apiLead struct {
	ID          string    `json:"id"`
	CreatedTime graphTime `json:"created_time"`
	FieldData   []struct {
		Name   string   `json:"name"`
		Values []string `json:"values"`
	} `json:"field_data"`
}

type leadsPage struct {
	Data   []apiLead `json:"data"`
	Paging struct {
		Next string `json:"next"`
	} `json:"paging"`
}

// fieldRole is a promoted identity slot in LeadRecord.
type fieldRole int

const (
	roleNone fieldRole = iota
	roleName
	roleEmail
	rolePhone
)

// fieldRules maps raw form field names onto identity slots. Rules are applied
// in order and the first matching rule per field wins, so exact names beat
// looser substring matches.
var fieldRules = []struct {
	match func(string) bool
	role  fieldRole
}{
	{func(n string) bool { return n == "full_name" || n == "name" }, roleName},
	{func(n string) bool { return n == "email" }, roleEmail},
	{func(n string) bool { return n == "phone_number" || n == "phone" }, rolePhone},
	{func(n string) bool { return strings.Contains(n, "name") }, roleName},
	{func(n string) bool { return strings.Contains(n, "email") }, roleEmail},
	{func(n string) bool { return strings.Contains(n, "phone") }, rolePhone},
}

func classifyField(name string) fieldRole {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for _, rule := range fieldRules {
		if rule.match(normalized) {
			return rule.role
		}
	}
	return roleNone
}

func (a apiLead) toLeadRecord() LeadRecord {
	rec := LeadRecord{
		ID:          a.ID,
		CreatedTime: a.CreatedTime.Time,
		Fields:      make(map[string]string, len(a.FieldData)),
	}
	for _, f := range a.FieldData {
		value := ""
		if len(f.Values) > 0 {
			value = strings.TrimSpace(f.Values[0])
		}
		rec.Fields[f.Name] = value
		if value == "" {
			continue
		}
		switch classifyField(f.Name) {
		case roleName:
			if rec.Name == "" {
				rec.Name = value
			}
		case roleEmail:
			if rec.Email == "" {
				rec.Email = value
			}
		case rolePhone:
			if rec.Phone == "" {
				rec.Phone = value
			}
		}
	}
	return rec
}

// ListLeads fetches every lead submitted to the given form, following the
// Graph API paging cursor until exhausted.
func (c *Client) ListLeads(ctx context.Context, formID string) ([]LeadRecord, error) {
	if !c.enabled {
		return nil, apperr.Unavailable("lead ads api not configured")
	}
	if formID == "" {
		return nil, apperr.Validation("form id required")
	}

	params := url.Values{}
	params.Set("access_token", c.accessToken)
	params.Set("fields", "id,created_time,field_data")
	reqURL := fmt.Sprintf("%s/%s/%s/leads?%s", c.baseURL, c.graphVersion, url.PathEscape(formID), params.Encode())

	var all []LeadRecord
	for reqURL != "" {
		page, err := c.fetchPage(ctx, reqURL)
		if err != nil {
			return nil, err
		}
		for _, lead := range page.Data {
			all = append(all, lead.toLeadRecord())
		}
		reqURL = page.Paging.Next
	}

	c.log.Debug("lead ads form listed", "formId", formID, "count", len(all))
	return all, nil
}

func (c *Client) fetchPage(ctx context.Context, reqURL string) (*leadsPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("lead ads request failed", "error", err)
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Error("lead ads upstream error", "status", resp.StatusCode)
		return nil, fmt.Errorf("upstream error: status %d", resp.StatusCode)
	}

	var page leadsPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &page, nil
}
