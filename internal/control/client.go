package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ssvep-engine/internal/timesync"
)

// Config drives gateway client behaviour.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// AllowedColumns are the layout widths the stimulus grid supports.
var AllowedColumns = []int{4, 5, 6}

// ErrInvalidColumns is returned for a layout width outside AllowedColumns.
var ErrInvalidColumns = errors.New("layout columns must be 4, 5 or 6")

// CommandResult reports the outcome of a gateway command. The commands are
// fire-and-forget on the wire, so the result carries whatever the gateway
// answered for logging and UI feedback.
type CommandResult struct {
	Status int
	Body   json.RawMessage
	Err    error
}

// OK reports whether the command reached the gateway and got a success
// status back.
func (r CommandResult) OK() bool {
	return r.Err == nil && r.Status >= 200 && r.Status < 300
}

// Client issues control commands against the gateway's HTTP surface.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient constructs a gateway client.
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
	}
}

// StartDisplay asks the gateway to begin the stimulus display. The response
// body is not consumed.
func (c *Client) StartDisplay(ctx context.Context) CommandResult {
	return c.command(ctx, "/startSSVEPDisplay", nil)
}

// PassedSeconds queries the display's elapsed time. A non-success status is
// a failure regardless of its body.
func (c *Client) PassedSeconds(ctx context.Context) (timesync.Reading, error) {
	res := c.command(ctx, "/checkoutPassedSeconds.json", nil)
	if res.Err != nil {
		return timesync.Reading{}, res.Err
	}
	if !res.OK() {
		return timesync.Reading{}, fmt.Errorf("checkout passed seconds: status %d", res.Status)
	}
	var reading timesync.Reading
	if err := json.Unmarshal(res.Body, &reading); err != nil {
		return timesync.Reading{}, fmt.Errorf("decode passed seconds: %w", err)
	}
	return reading, nil
}

// AppendCueSequence submits new cue text for the display's word bag.
func (c *Client) AppendCueSequence(ctx context.Context, text string) CommandResult {
	params := url.Values{}
	params.Set("text", text)
	return c.command(ctx, "/appendCueSequence.json", params)
}

// SetLayoutColumns switches the stimulus grid to the given width.
func (c *Client) SetLayoutColumns(ctx context.Context, columns int) CommandResult {
	valid := false
	for _, n := range AllowedColumns {
		if columns == n {
			valid = true
			break
		}
	}
	if !valid {
		return CommandResult{Err: ErrInvalidColumns}
	}
	params := url.Values{}
	params.Set("columns", strconv.Itoa(columns))
	return c.command(ctx, "/ssvepLayoutColumns", params)
}

func (c *Client) command(ctx context.Context, path string, params url.Values) CommandResult {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint = endpoint + "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return CommandResult{Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return CommandResult{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return CommandResult{Status: resp.StatusCode, Err: err}
	}
	return CommandResult{Status: resp.StatusCode, Body: body}
}
