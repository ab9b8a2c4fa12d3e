package appstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	app_errors "github.com/robwilkens/AppStireCopyDesctoNewVersionScript/internal/errors"
)

// Requester is the authenticated transport the resource client sends
// through. *httpclient.Client satisfies it.
type Requester interface {
	Get(ctx context.Context, url string) (*http.Response, error)
	Post(ctx context.Context, url string, body any) (*http.Response, error)
	Patch(ctx context.Context, url string, body any) (*http.Response, error)
}

// Client wraps the App Store Connect endpoints the copy job needs.
type Client struct {
	http    Requester
	baseURL string
}

func NewClient(requester Requester, baseURL string) *Client {
	return &Client{http: requester, baseURL: strings.TrimRight(baseURL, "/")}
}

func (c *Client) endpoint(format string, args ...any) string {
	escaped := make([]any, len(args))
	for i, arg := range args {
		escaped[i] = url.PathEscape(fmt.Sprint(arg))
	}
	return c.baseURL + fmt.Sprintf(format, escaped...)
}

// ListApps returns the first page of apps together with the raw response
// body, which the debug dump records verbatim.
func (c *Client) ListApps(ctx context.Context, limit int) ([]App, []byte, error) {
	target := c.endpoint("/v1/apps") + "?limit=" + strconv.Itoa(limit)

	raw, err := c.get(ctx, target)
	if err != nil {
		return nil, nil, err
	}

	var page listResponse[App]
	if err := decode(raw, target, &page); err != nil {
		return nil, raw, err
	}
	return page.Data, raw, nil
}

// ListVersions follows links.next until every version is collected.
func (c *Client) ListVersions(ctx context.Context, appID string) ([]Version, error) {
	return collect[Version](ctx, c, c.endpoint("/v1/apps/%s/appStoreVersions", appID))
}

func (c *Client) ListLocalizations(ctx context.Context, versionID string) ([]Localization, error) {
	return collect[Localization](ctx, c, c.endpoint("/v1/appStoreVersions/%s/appStoreVersionLocalizations", versionID))
}

func (c *Client) UpdateLocalization(ctx context.Context, localizationID string, fields LocalizationFields) (Localization, error) {
	target := c.endpoint("/v1/appStoreVersionLocalizations/%s", localizationID)
	body := updateRequest{Data: updateData{
		Type:       typeLocalization,
		ID:         localizationID,
		Attributes: fields,
	}}
	return c.write(ctx, http.MethodPatch, target, body)
}

func (c *Client) CreateLocalization(ctx context.Context, versionID, locale string, fields LocalizationFields) (Localization, error) {
	target := c.endpoint("/v1/appStoreVersionLocalizations")
	body := createRequest{Data: createData{
		Type:       typeLocalization,
		Attributes: createAttributes{Locale: locale, LocalizationFields: fields},
		Relationships: createRelationships{
			AppStoreVersion: relationship{Data: resourceIdentifier{Type: typeVersion, ID: versionID}},
		},
	}}
	return c.write(ctx, http.MethodPost, target, body)
}

func collect[T any](ctx context.Context, c *Client, first string) ([]T, error) {
	var items []T
	seen := make(map[string]struct{})

	for next := first; next != ""; {
		if _, dup := seen[next]; dup {
			return nil, fmt.Errorf("pagination loop at %s", next)
		}
		seen[next] = struct{}{}

		raw, err := c.get(ctx, next)
		if err != nil {
			return nil, err
		}

		var page listResponse[T]
		if err := decode(raw, next, &page); err != nil {
			return nil, err
		}
		items = append(items, page.Data...)
		next = page.Links.Next
	}

	return items, nil
}

func (c *Client) get(ctx context.Context, target string) ([]byte, error) {
	resp, err := c.http.Get(ctx, target)
	if err != nil {
		return nil, err
	}
	return readBody(resp, target)
}

func (c *Client) write(ctx context.Context, method, target string, body any) (Localization, error) {
	var (
		resp *http.Response
		err  error
	)
	if method == http.MethodPatch {
		resp, err = c.http.Patch(ctx, target, body)
	} else {
		resp, err = c.http.Post(ctx, target, body)
	}
	if err != nil {
		return Localization{}, err
	}

	raw, err := readBody(resp, target)
	if err != nil {
		return Localization{}, err
	}

	var out singleResponse[Localization]
	if len(raw) == 0 {
		return out.Data, nil
	}
	if err := decode(raw, target, &out); err != nil {
		return Localization{}, err
	}
	return out.Data, nil
}

func readBody(resp *http.Response, target string) ([]byte, error) {
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target, err)
	}
	return raw, nil
}

func decode(raw []byte, target string, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %s: %v", app_errors.ErrDecode, target, err)
	}
	return nil
}
