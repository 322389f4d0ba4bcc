package restyutil

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

type InstrumentOutput interface {
	Write(id string, contents string)
}

type instrumentCtx struct {
	output    InstrumentOutput
	idcounter *uint64
}

// InstrumentClient logs every exchange at debug level and writes the full
// request and response to `output`. if `output` is nil this is a no-op.
func InstrumentClient(client *resty.Client, output InstrumentOutput) {
	if output == nil {
		return
	}

	var idcounter uint64
	i := instrumentCtx{output: output, idcounter: &idcounter}
	client.OnBeforeRequest(i.onBeforeRequest)
	client.OnAfterResponse(i.onAfterResponse)
	client.OnError(i.onError)
}

type messageIdKey struct{}

func messageId(n uint64, rawUrl string) string {
	host := "request"
	parsed, err := url.Parse(rawUrl)
	if err == nil && parsed.Host != "" {
		host = strings.ReplaceAll(parsed.Host, ":", "_")
	}
	return fmt.Sprintf("%04d-%s", n, host)
}

func (i instrumentCtx) onBeforeRequest(_ *resty.Client, req *resty.Request) error {
	id := messageId(atomic.AddUint64(i.idcounter, 1), req.URL)
	ctx := context.WithValue(req.Context(), messageIdKey{}, id)
	slog.DebugContext(
		ctx, "start request",
		"method", req.Method,
		"url", req.URL,
		"message_id", id,
	)
	req.SetContext(ctx)
	return nil
}

func (i instrumentCtx) onAfterResponse(_ *resty.Client, res *resty.Response) error {
	ctx := res.Request.Context()
	id, ok := ctx.Value(messageIdKey{}).(string)
	if !ok {
		id = messageId(atomic.AddUint64(i.idcounter, 1), res.Request.URL)
	}

	i.output.Write(id, formatHttpMessage(res))
	slog.DebugContext(
		ctx, "request finished",
		"method", res.Request.Method,
		"url", res.Request.URL,
		"status", res.StatusCode(),
		"message_id", id,
	)
	return nil
}

func (i instrumentCtx) onError(req *resty.Request, err error) {
	id, _ := req.Context().Value(messageIdKey{}).(string)
	slog.DebugContext(
		req.Context(), "request failed",
		"method", req.Method,
		"url", req.URL,
		"err", err,
		"message_id", id,
	)
}
