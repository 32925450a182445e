// Package rpc is the outbound JSON-RPC read client: the three node
// capabilities handlers and the entity-refresh service use to fetch
// authoritative on-chain state that events alone don't carry.
package rpc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/jhttp"
)

// Object mirrors get_object_with_options's response shape: owner, type and
// a content.fields JSON tree. Fields is left as raw JSON so venue-specific
// handler code can decode only what it needs.
type Object struct {
	ObjectID             string          `json:"objectId"`
	Owner                string          `json:"-"`
	Type                 string          `json:"-"`
	Fields               json.RawMessage `json:"-"`
	InitialSharedVersion uint64          `json:"-"`
}

// ObjectFilter narrows get_owned_objects to a struct type.
type ObjectFilter struct {
	StructType string `json:"StructType,omitempty"`
}

// ObjectRef is one entry of a get_owned_objects page.
type ObjectRef struct {
	ObjectID string
	Version  uint64
	Digest   string
}

// ObjectPage is one page of get_owned_objects results.
type ObjectPage struct {
	Data       []ObjectRef
	NextCursor string
	HasNext    bool
}

// Client is the outbound RPC read contract. Implementations retry
// transient failures themselves; callers treat a returned error as final.
type Client interface {
	GetObjectWithOptions(ctx context.Context, objectID string) (Object, error)
	DevInspectTransactionBlock(ctx context.Context, sender string, ptb []byte) ([][]byte, error)
	GetOwnedObjects(ctx context.Context, owner string, filter ObjectFilter, cursor string) (ObjectPage, error)
}

// HTTPClient is the concrete Client backed by a JSON-RPC-over-HTTP
// endpoint via jrpc2's jhttp channel, with every call wrapped in an
// exponential backoff retry.
type HTTPClient struct {
	client  *jrpc2.Client
	backoff func() backoff.BackOff
}

// NewHTTPClient dials the RPC endpoint. The returned client is safe for
// concurrent use.
func NewHTTPClient(url string) *HTTPClient {
	ch := jhttp.NewChannel(url, &jhttp.ChannelOptions{
		Client: &http.Client{Timeout: 30 * time.Second},
	})
	c := jrpc2.NewClient(ch, nil)
	return &HTTPClient{
		client: c,
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxElapsedTime = 15 * time.Second
			return b
		},
	}
}

type getObjectParams struct {
	ObjectID string          `json:"object_id"`
	Options  map[string]bool `json:"options"`
}

type getObjectResultWrapper struct {
	Data struct {
		ObjectID string          `json:"objectId"`
		Owner    json.RawMessage `json:"owner"`
		Type     string          `json:"type"`
		Content  struct {
			Fields json.RawMessage `json:"fields"`
		} `json:"content"`
	} `json:"data"`
}

// GetObjectWithOptions fetches an object's owner, type and content.fields.
func (c *HTTPClient) GetObjectWithOptions(ctx context.Context, objectID string) (Object, error) {
	var result getObjectResultWrapper
	err := c.retry(ctx, func() error {
		return c.client.CallResult(ctx, "sui_getObject", getObjectParams{
			ObjectID: objectID,
			Options: map[string]bool{
				"showType":    true,
				"showOwner":   true,
				"showContent": true,
			},
		}, &result)
	})
	if err != nil {
		return Object{}, fmt.Errorf("rpc: get_object_with_options %s: %w", objectID, err)
	}

	obj := Object{
		ObjectID: result.Data.ObjectID,
		Type:     result.Data.Type,
		Fields:   result.Data.Content.Fields,
	}

	var owner struct {
		Shared *struct {
			InitialSharedVersion uint64 `json:"initial_shared_version"`
		} `json:"Shared"`
		AddressOwner string `json:"AddressOwner"`
	}
	if len(result.Data.Owner) > 0 {
		if err := json.Unmarshal(result.Data.Owner, &owner); err == nil {
			if owner.Shared != nil {
				obj.InitialSharedVersion = owner.Shared.InitialSharedVersion
			}
			obj.Owner = owner.AddressOwner
		}
	}

	return obj, nil
}

type devInspectParams struct {
	Sender  string `json:"sender"`
	TxBytes string `json:"tx_bytes"`
}

type devInspectResult struct {
	Results []struct {
		ReturnValues [][]json.RawMessage `json:"returnValues"`
	} `json:"results"`
}

// DevInspectTransactionBlock runs a read-only simulation of a programmable
// transaction, used by the Scallop obligation-ownership check, the Navi
// reserve coin-type lookup and the lending handlers' balance reads.
func (c *HTTPClient) DevInspectTransactionBlock(ctx context.Context, sender string, ptb []byte) ([][]byte, error) {
	var result devInspectResult
	err := c.retry(ctx, func() error {
		return c.client.CallResult(ctx, "sui_devInspectTransactionBlock", devInspectParams{
			Sender:  sender,
			TxBytes: base64.StdEncoding.EncodeToString(ptb),
		}, &result)
	})
	if err != nil {
		return nil, fmt.Errorf("rpc: dev_inspect_transaction_block: %w", err)
	}

	var out [][]byte
	for _, r := range result.Results {
		for _, rv := range r.ReturnValues {
			if len(rv) == 0 {
				continue
			}
			var raw []byte
			if err := json.Unmarshal(rv[0], &raw); err == nil {
				out = append(out, raw)
			}
		}
	}
	return out, nil
}

type getOwnedObjectsParams struct {
	Owner  string       `json:"owner"`
	Filter ObjectFilter `json:"filter,omitempty"`
	Cursor string       `json:"cursor,omitempty"`
}

type getOwnedObjectsResult struct {
	Data []struct {
		Data struct {
			ObjectID string `json:"objectId"`
			Version  string `json:"version"`
			Digest   string `json:"digest"`
		} `json:"data"`
	} `json:"data"`
	NextCursor  string `json:"nextCursor"`
	HasNextPage bool   `json:"hasNextPage"`
}

// GetOwnedObjects pages through objects owned by owner, optionally
// filtered by struct type.
func (c *HTTPClient) GetOwnedObjects(ctx context.Context, owner string, filter ObjectFilter, cursor string) (ObjectPage, error) {
	var result getOwnedObjectsResult
	err := c.retry(ctx, func() error {
		return c.client.CallResult(ctx, "suix_getOwnedObjects", getOwnedObjectsParams{
			Owner:  owner,
			Filter: filter,
			Cursor: cursor,
		}, &result)
	})
	if err != nil {
		return ObjectPage{}, fmt.Errorf("rpc: get_owned_objects: %w", err)
	}

	page := ObjectPage{NextCursor: result.NextCursor, HasNext: result.HasNextPage}
	for _, d := range result.Data {
		page.Data = append(page.Data, ObjectRef{ObjectID: d.Data.ObjectID, Digest: d.Data.Digest})
	}
	return page, nil
}

// retry wraps op with the client's exponential backoff policy, bounded by
// ctx cancellation (the reader's exit signal).
func (c *HTTPClient) retry(ctx context.Context, op func() error) error {
	return backoff.Retry(op, backoff.WithContext(c.backoff(), ctx))
}

// Close releases the underlying JSON-RPC client.
func (c *HTTPClient) Close() error {
	c.client.Close()
	return nil
}
