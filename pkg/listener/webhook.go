// Copyright 2026 PolicySync Authors
// SPDX-License-Identifier: Apache-2.0

package listener

import (
	"io"
	"net/http"

	"github.com/datalift/policysync/pkg/logger"
)

// maxWebhookBody bounds notification payload size. S3 event records are
// a few KB; anything near the limit is garbage.
const maxWebhookBody = 1 << 20

// Webhook accepts S3 event notifications over HTTP POST. The response
// status and body are the pipeline result, so callers see the same
// invocation result an event queue would record.
type Webhook struct {
	handler Handler
}

func NewWebhook(handler Handler) *Webhook {
	return &Webhook{handler: handler}
}

func (wh *Webhook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody+1))
	if err != nil || len(body) == 0 || len(body) > maxWebhookBody {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}

	EventsReceivedTotal.WithLabelValues("webhook").Inc()
	res := wh.handler.Handle(r.Context(), body)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(res.StatusCode)
	if _, err := w.Write([]byte(res.Body)); err != nil {
		logger.Ctx(r.Context()).Warn().Err(err).Msg("webhook response write failed")
	}
}

var _ http.Handler = (*Webhook)(nil)
