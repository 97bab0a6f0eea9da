package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultAPIVersion is the Web API version used when none is configured.
const DefaultAPIVersion = "v9.2"

// ClientOptions configures NewClient.
type ClientOptions struct {
	BaseURL    string // e.g. https://org.crm.dynamics.com
	Token      string // bearer token; empty sends no Authorization header
	APIVersion string
	Timeout    time.Duration
	HTTPClient *http.Client // optional; its Transport is wrapped with otelhttp
}

// Client talks to an OData Web API:
//
//	GET    {base}/api/data/{ver}/{set}({id})?$select=a,b
//	POST   {base}/api/data/{ver}/{set}
//	PATCH  {base}/api/data/{ver}/{set}({id})
//	DELETE {base}/api/data/{ver}/{set}({id})
type Client struct {
	base  string
	token string
	http  *http.Client
}

var _ Service = (*Client)(nil)

// NewClient builds a Client. BaseURL is required.
func NewClient(o ClientOptions) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(o.BaseURL), "/")
	if base == "" {
		return nil, errors.New("crm: base url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("crm: invalid base url: %w", err)
	}
	ver := o.APIVersion
	if ver == "" {
		ver = DefaultAPIVersion
	}

	hc := o.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	rt := hc.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	wrapped := *hc
	wrapped.Transport = otelhttp.NewTransport(rt)
	if o.Timeout > 0 {
		wrapped.Timeout = o.Timeout
	}

	return &Client{
		base:  base + "/api/data/" + ver,
		token: o.Token,
		http:  &wrapped,
	}, nil
}

// EntitySet returns the collection name for a logical name
// ("jmc_inquiry" → "jmc_inquiries", "contact" → "contacts").
func EntitySet(logicalName string) string {
	if strings.HasSuffix(logicalName, "y") {
		return strings.TrimSuffix(logicalName, "y") + "ies"
	}
	return logicalName + "s"
}

// primaryKey is the id attribute of an entity, "<logicalname>id".
func primaryKey(logicalName string) string { return logicalName + "id" }

func (c *Client) entityURL(name string, id uuid.UUID) string {
	return fmt.Sprintf("%s/%s(%s)", c.base, EntitySet(name), id)
}

// Retrieve fetches one entity, restricted to cols when non-empty.
func (c *Client) Retrieve(ctx context.Context, entityName string, id uuid.UUID, cols ColumnSet) (ent *Entity, err error) {
	defer observe("retrieve", entityName, time.Now(), &err)

	u := c.entityURL(entityName, id)
	if len(cols) > 0 {
		u += "?$select=" + url.QueryEscape(strings.Join(cols, ","))
	}
	var body map[string]any
	if err := c.do(ctx, http.MethodGet, u, nil, &body); err != nil {
		return nil, err
	}

	ent = NewEntity(entityName, id)
	for k, v := range body {
		if strings.HasPrefix(k, "@odata.") || k == primaryKey(entityName) {
			continue
		}
		ent.Attributes[k] = v
	}
	return ent, nil
}

// Create posts a new entity. When e.ID is set it is sent as the primary key
// so the remote record shares the caller's identifier.
func (c *Client) Create(ctx context.Context, e *Entity) (id uuid.UUID, err error) {
	defer observe("create", e.LogicalName, time.Now(), &err)

	payload := encodeAttributes(e)
	if e.ID != uuid.Nil {
		payload[primaryKey(e.LogicalName)] = e.ID.String()
	}
	req, err := c.newRequest(ctx, http.MethodPost, c.base+"/"+EntitySet(e.LogicalName), payload)
	if err != nil {
		return uuid.Nil, err
	}
	resp, err := c.send(req)
	if err != nil {
		return uuid.Nil, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if e.ID != uuid.Nil {
		return e.ID, nil
	}
	// OData returns the new URI in OData-EntityId: .../set(<guid>)
	loc := resp.Header.Get("OData-EntityId")
	if i, j := strings.LastIndex(loc, "("), strings.LastIndex(loc, ")"); i >= 0 && j > i {
		return uuid.Parse(loc[i+1 : j])
	}
	return uuid.Nil, errors.New("crm: create response carried no entity id")
}

// Update patches the attributes present on e.
func (c *Client) Update(ctx context.Context, e *Entity) (err error) {
	defer observe("update", e.LogicalName, time.Now(), &err)
	return c.do(ctx, http.MethodPatch, c.entityURL(e.LogicalName, e.ID), encodeAttributes(e), nil)
}

// Delete removes an entity.
func (c *Client) Delete(ctx context.Context, entityName string, id uuid.UUID) (err error) {
	defer observe("delete", entityName, time.Now(), &err)
	return c.do(ctx, http.MethodDelete, c.entityURL(entityName, id), nil, nil)
}

// encodeAttributes converts references into "@odata.bind" navigation
// properties and copies everything else verbatim.
func encodeAttributes(e *Entity) map[string]any {
	out := make(map[string]any, len(e.Attributes)+1)
	for k, v := range e.Attributes {
		switch ref := v.(type) {
		case EntityReference:
			out[k+"@odata.bind"] = fmt.Sprintf("/%s(%s)", EntitySet(ref.LogicalName), ref.ID)
		case *EntityReference:
			if ref != nil {
				out[k+"@odata.bind"] = fmt.Sprintf("/%s(%s)", EntitySet(ref.LogicalName), ref.ID)
			}
		default:
			out[k] = v
		}
	}
	return out
}

func (c *Client) newRequest(ctx context.Context, method, u string, payload any) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("crm: encode: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("crm: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("OData-MaxVersion", "4.0")
	req.Header.Set("OData-Version", "4.0")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// send executes req and converts non-2xx responses into errors.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("crm: %s %s: %w", req.Method, req.URL.Path, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	return nil, decodeAPIError(resp)
}

func (c *Client) do(ctx context.Context, method, u string, payload, out any) error {
	req, err := c.newRequest(ctx, method, u, payload)
	if err != nil {
		return err
	}
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("crm: decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(b, &env) == nil && env.Error.Message != "" {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
	}
	return apiErr
}

func observe(op, entity string, start time.Time, errp *error) {
	var err error
	if errp != nil {
		err = *errp
	}
	crmReqs.WithLabelValues(op, entity, outcome(err)).Inc()
	crmLat.WithLabelValues(op, entity).Observe(time.Since(start).Seconds())
}
