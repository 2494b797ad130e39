package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/m3rciful/leadbot/core/chat"
	"github.com/m3rciful/leadbot/core/logger"
	"github.com/m3rciful/leadbot/core/netutil"
)

// maxReplyMessages is the Messaging API limit per reply call.
const maxReplyMessages = 5

// Client talks to the LINE Messaging API and implements chat.Gateway.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// ClientOptions configures NewClient.
type ClientOptions struct {
	BaseURL     string
	AccessToken string
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// NewClient builds a Messaging API client. Only GET lookups are retried;
// reply tokens are single use, so replies are sent exactly once.
func NewClient(opts ClientOptions) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = netutil.BuildHTTPClient(netutil.ClientOptions{
			Timeout:        opts.Timeout,
			IdempotentOnly: true,
		})
	}
	base := opts.BaseURL
	if base == "" {
		base = "https://api.line.me"
	}
	return &Client{baseURL: base, token: opts.AccessToken, httpClient: hc}
}

// Profile returns the profile of a user who has added the bot as a friend.
func (c *Client) Profile(ctx context.Context, userID string) (chat.Profile, error) {
	var out struct {
		UserID      string `json:"userId"`
		DisplayName string `json:"displayName"`
	}
	if err := c.get(ctx, "/v2/bot/profile/"+url.PathEscape(userID), &out); err != nil {
		return chat.Profile{}, chat.Unavailable("line profile", err)
	}
	return chat.Profile{UserID: out.UserID, DisplayName: out.DisplayName}, nil
}

// GroupMemberProfile returns the profile of a member of a group chat.
func (c *Client) GroupMemberProfile(ctx context.Context, groupID, userID string) (chat.Profile, error) {
	var out struct {
		UserID      string `json:"userId"`
		DisplayName string `json:"displayName"`
	}
	path := "/v2/bot/group/" + url.PathEscape(groupID) + "/member/" + url.PathEscape(userID)
	if err := c.get(ctx, path, &out); err != nil {
		return chat.Profile{}, chat.Unavailable("line group member profile", err)
	}
	return chat.Profile{UserID: out.UserID, DisplayName: out.DisplayName}, nil
}

// GroupSummary returns the group name and, when available, its member count.
func (c *Client) GroupSummary(ctx context.Context, groupID string) (chat.GroupSummary, error) {
	var out struct {
		GroupID   string `json:"groupId"`
		GroupName string `json:"groupName"`
	}
	if err := c.get(ctx, "/v2/bot/group/"+url.PathEscape(groupID)+"/summary", &out); err != nil {
		return chat.GroupSummary{}, chat.Unavailable("line group summary", err)
	}
	summary := chat.GroupSummary{GroupID: out.GroupID, Name: out.GroupName}

	var count struct {
		Count int `json:"count"`
	}
	if err := c.get(ctx, "/v2/bot/group/"+url.PathEscape(groupID)+"/members/count", &count); err != nil {
		logger.Debug(ctx, logger.CompLine, "group.count_unavailable", slog.String("err", err.Error()))
	} else {
		summary.MemberCount = count.Count
	}
	return summary, nil
}

// Reply sends msgs using a reply token. Messages beyond the API limit are dropped.
func (c *Client) Reply(ctx context.Context, replyToken string, msgs ...chat.Message) error {
	if replyToken == "" {
		return fmt.Errorf("line reply: empty reply token")
	}
	if len(msgs) == 0 {
		return nil
	}
	if len(msgs) > maxReplyMessages {
		logger.Warn(ctx, logger.CompLine, "reply.truncated", slog.Int("count", len(msgs)))
		msgs = msgs[:maxReplyMessages]
	}
	body := replyRequest{ReplyToken: replyToken}
	for _, m := range msgs {
		body.Messages = append(body.Messages, renderMessage(m))
	}
	return c.post(ctx, "/v2/bot/message/reply", body)
}

type replyRequest struct {
	ReplyToken string `json:"replyToken"`
	Messages   []any  `json:"messages"`
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, in any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, nil)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.token)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	logger.Debug(req.Context(), logger.CompLine, "api.call",
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
		slog.Int("http_code", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", req.URL.Path, err)
	}
	return nil
}
