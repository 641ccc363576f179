package reportpdf

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicholaszhao/uptime-report-pdf/packages/go/models"
	"github.com/nicholaszhao/uptime-report-pdf/services/reportpdf/render"
)

const reportKey = "uptime/2025/09/uptime-report.html"

func decodeBody(t *testing.T, body string) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	return out
}

func TestHandle_PublishesHTMLAndPDF(t *testing.T) {
	store := newMemStore("src", "dst")
	store.add("src", reportKey, "<html>OK</html>", testNow.Add(-48*time.Hour))
	renderer := &stubRenderer{pdf: []byte("%PDF-1.4 ok")}
	h := NewHandler(newTestService(testConfig(), store, renderer))

	resp, err := h.Handle(context.Background(), Event{"month": "09", "year": "2025"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "<html>OK</html>", resp.Body)
	assert.Equal(t, "text/html; charset=utf-8", resp.Headers["Content-Type"])
	assert.Equal(t, "no-store", resp.Headers["Cache-Control"])

	html := store.object("dst", "uptime/2025/09/uptime-report.html")
	require.NotNil(t, html)
	assert.Equal(t, "<html>OK</html>", string(html.data))
	assert.Equal(t, "text/html; charset=utf-8", html.opts.ContentType)
	assert.Equal(t, "no-cache", html.opts.CacheControl)

	pdf := store.object("dst", "uptime/2025/09/uptime-report.pdf")
	require.NotNil(t, pdf)
	assert.Equal(t, "%PDF-1.4 ok", string(pdf.data))
	assert.Equal(t, "application/pdf", pdf.opts.ContentType)

	assert.Equal(t, render.Options{
		PageSize:        "A4",
		PrintBackground: true,
		WaitCondition:   "load",
		Timeout:         time.Second,
	}, renderer.lastOpts)
}

func TestHandle_DebugPayload(t *testing.T) {
	store := newMemStore("src", "dst")
	store.add("src", reportKey, "<html>OK</html>", testNow)
	h := NewHandler(newTestService(testConfig(), store, &stubRenderer{pdf: []byte("%PDF")}))

	event := Event{"queryStringParameters": map[string]any{"month": "9", "year": float64(2025), "debug": "1"}}
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Headers["Content-Type"])

	body := decodeBody(t, resp.Body)
	assert.Equal(t, "src", body["src_bucket"])
	assert.Equal(t, "dst", body["dest_bucket"])
	assert.Equal(t, "uptime/2025/09/", body["prefix"])
	assert.Equal(t, reportKey, body["html_key"])
	assert.Equal(t, "uptime/2025/09/uptime-report.html", body["dest_html_key"])
	assert.Equal(t, "uptime/2025/09/uptime-report.pdf", body["dest_pdf_key"])
	assert.Equal(t, true, body["pdf_uploaded"])
	assert.Nil(t, body["pdf_error"])
	assert.Equal(t, "stub", body["renderer"])
}

func TestHandle_RenderFailureSkipped(t *testing.T) {
	cfg := testConfig()
	cfg.AllowPDFSkip = true
	store := newMemStore("src", "dst")
	store.add("src", reportKey, "<html>OK</html>", testNow)
	ledger := &stubLedger{}
	svc := newTestService(cfg, store, &stubRenderer{err: errors.New("browser crashed")})
	svc.SetLedger(ledger)
	h := NewHandler(svc)

	resp, err := h.Handle(context.Background(), Event{"month": "09", "year": "2025", "debug": true})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp.Body)
	assert.Equal(t, false, body["pdf_uploaded"])
	assert.Equal(t, "stub: browser crashed", body["pdf_error"])
	assert.NotContains(t, body, "error")

	assert.NotNil(t, store.object("dst", "uptime/2025/09/uptime-report.html"))
	assert.Nil(t, store.object("dst", "uptime/2025/09/uptime-report.pdf"))

	require.Len(t, ledger.runs, 1)
	assert.Equal(t, models.RunStatusCompletedWithoutPDF, ledger.runs[0].Status)
	assert.Equal(t, "stub: browser crashed", ledger.runs[0].Error)
	assert.Empty(t, ledger.runs[0].DestPDFKey)

	// without debug the HTML is still passed through
	resp, err = h.Handle(context.Background(), Event{"month": "09", "year": "2025"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "<html>OK</html>", resp.Body)
}

func TestHandle_RenderFailureNotSkipped(t *testing.T) {
	store := newMemStore("src", "dst")
	store.add("src", reportKey, "<html>OK</html>", testNow)
	h := NewHandler(newTestService(testConfig(), store, &stubRenderer{err: errors.New("boom")}))

	resp, err := h.Handle(context.Background(), Event{"month": "09", "year": "2025"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "PDF generation failed: stub: boom", decodeBody(t, resp.Body)["error"])

	resp, err = h.Handle(context.Background(), Event{"month": "09", "year": "2025", "debug": float64(1)})
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body := decodeBody(t, resp.Body)
	assert.Equal(t, false, body["pdf_uploaded"])
	assert.Equal(t, "stub: boom", body["pdf_error"])
	assert.Equal(t, "PDF generation failed: stub: boom", body["error"])
	assert.Len(t, body["attempts"], 1)

	assert.Nil(t, store.object("dst", "uptime/2025/09/uptime-report.pdf"))
}

func TestHandle_NotFound(t *testing.T) {
	store := newMemStore("src", "dst")
	store.add("src", "uptime/2025/08/uptime-report.html", "<html>August</html>", testNow)
	ledger := &stubLedger{}
	svc := newTestService(testConfig(), store, &stubRenderer{pdf: []byte("%PDF")})
	svc.SetLedger(ledger)

	resp, err := NewHandler(svc).Handle(context.Background(), Event{"month": "09", "year": "2025"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t,
		`No "uptime-report.html" found under s3://src/uptime/2025/09/ (including subfolders).`,
		decodeBody(t, resp.Body)["error"])

	require.Len(t, ledger.runs, 1)
	assert.Equal(t, models.RunStatusNotFound, ledger.runs[0].Status)
	assert.Equal(t, "2025-09", ledger.runs[0].Period)
}

func TestHandle_InvalidMonth(t *testing.T) {
	tests := []struct {
		name  string
		event Event
	}{
		{"Out of range", Event{"month": "13"}},
		{"Not a number", Event{"month": "abc"}},
		{"Query string", Event{"queryStringParameters": map[string]any{"month": "00"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			renderer := &stubRenderer{pdf: []byte("%PDF")}
			ledger := &stubLedger{}
			svc := newTestService(testConfig(), newMemStore("src", "dst"), renderer)
			svc.SetLedger(ledger)

			resp, err := NewHandler(svc).Handle(context.Background(), tt.event)
			require.NoError(t, err)

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Contains(t, decodeBody(t, resp.Body)["error"], `Use two digits like "09", or "auto", or "prev".`)
			assert.Zero(t, renderer.calls)
			assert.Empty(t, ledger.runs)
		})
	}
}

func TestHandle_StorageErrors(t *testing.T) {
	t.Run("Missing source bucket", func(t *testing.T) {
		store := newMemStore("dst")
		resp, err := NewHandler(newTestService(testConfig(), store, &stubRenderer{})).Handle(context.Background(), Event{"month": "09", "year": "2025"})
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "S3 error (list src): bucket not found: src", decodeBody(t, resp.Body)["error"])
	})

	t.Run("Access denied on read", func(t *testing.T) {
		store := newMemStore("src", "dst")
		store.add("src", reportKey, "<html>OK</html>", testNow)
		store.getErr = errors.New("AccessDenied: Access Denied")
		resp, err := NewHandler(newTestService(testConfig(), store, &stubRenderer{})).Handle(context.Background(), Event{"month": "09", "year": "2025"})
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "S3 error (read src): AccessDenied: Access Denied", decodeBody(t, resp.Body)["error"])
	})

	t.Run("Missing destination bucket", func(t *testing.T) {
		store := newMemStore("src")
		store.add("src", reportKey, "<html>OK</html>", testNow)
		resp, err := NewHandler(newTestService(testConfig(), store, &stubRenderer{})).Handle(context.Background(), Event{"month": "09", "year": "2025"})
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "S3 error (write html): bucket not found: dst", decodeBody(t, resp.Body)["error"])
	})
}

func TestHandle_PanicBecomesGenericError(t *testing.T) {
	store := newMemStore("src", "dst")
	store.add("src", reportKey, "<html>OK</html>", testNow)
	h := NewHandler(newTestService(testConfig(), store, &stubRenderer{panicMsg: "nil map"}))

	resp, err := h.Handle(context.Background(), Event{"month": "09", "year": "2025"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Internal server error", decodeBody(t, resp.Body)["error"])
}

func TestGenerate_RelativeMonths(t *testing.T) {
	store := newMemStore("src", "dst")
	store.add("src", "uptime/2025/10/uptime-report.html", "october", testNow)
	store.add("src", "uptime/2025/09/uptime-report.html", "september", testNow)
	svc := newTestService(testConfig(), store, &stubRenderer{pdf: []byte("%PDF")})

	tests := []struct {
		month string
		want  string
	}{
		{"", "october"},
		{"auto", "october"},
		{"PREV", "september"},
		{"last", "september"},
	}

	for _, tt := range tests {
		t.Run(tt.month, func(t *testing.T) {
			res, err := svc.Generate(context.Background(), Request{Month: tt.month})
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.HTML)
		})
	}
}

func TestGenerate_PrefersNewestNestedReport(t *testing.T) {
	store := newMemStore("src", "dst")
	store.add("src", reportKey, "direct", testNow.Add(-2*time.Hour))
	store.add("src", "uptime/2025/09/run-b/uptime-report.html", "nested", testNow.Add(-time.Hour))
	store.add("src", "uptime/2025/09/a/b/uptime-report.html", "too deep", testNow)

	res, err := newTestService(testConfig(), store, &stubRenderer{pdf: []byte("%PDF")}).
		Generate(context.Background(), Request{Month: "09", Year: "2025"})
	require.NoError(t, err)

	assert.Equal(t, "uptime/2025/09/run-b/uptime-report.html", res.SourceKey)
	assert.Equal(t, "nested", string(store.object("dst", "uptime/2025/09/uptime-report.html").data))
}

func TestGenerate_LossyDecode(t *testing.T) {
	store := newMemStore("src", "dst")
	store.add("src", reportKey, "<p>caf\xe9 \xff</p>", testNow)

	res, err := newTestService(testConfig(), store, &stubRenderer{pdf: []byte("%PDF")}).
		Generate(context.Background(), Request{Month: "09", Year: "2025"})
	require.NoError(t, err)

	assert.Equal(t, "<p>caf\uFFFD \uFFFD</p>", res.HTML)
	assert.Equal(t, res.HTML, string(store.object("dst", "uptime/2025/09/uptime-report.html").data))
}

func TestGenerate_SeparateDestinationBase(t *testing.T) {
	cfg := testConfig()
	cfg.DestBasePrefix = "published"
	cfg.OutPDFName = "report.pdf"
	store := newMemStore("src", "dst")
	store.add("src", reportKey, "<html>OK</html>", testNow)

	res, err := newTestService(cfg, store, &stubRenderer{pdf: []byte("%PDF")}).
		Generate(context.Background(), Request{Month: "09", Year: "2025"})
	require.NoError(t, err)

	assert.Equal(t, "published/2025/09/report.pdf", res.Keys.DestPDFKey)
	assert.NotNil(t, store.object("dst", "published/2025/09/uptime-report.html"))
	assert.NotNil(t, store.object("dst", "published/2025/09/report.pdf"))
}

func TestGenerate_RecordsAndNotifies(t *testing.T) {
	store := newMemStore("src", "dst")
	store.add("src", reportKey, "<html>OK</html>", testNow)
	ledger := &stubLedger{err: errors.New("ledger down")}
	notifier := &stubNotifier{}
	svc := newTestService(testConfig(), store, &stubRenderer{pdf: []byte("%PDF-1.4")})
	svc.SetLedger(ledger)
	svc.SetNotifier(notifier)

	_, err := svc.Generate(context.Background(), Request{Month: "09", Year: "2025"})
	require.NoError(t, err, "ledger failures must not fail the run")

	require.Len(t, ledger.runs, 1)
	run := ledger.runs[0]
	assert.Equal(t, models.RunStatusCompleted, run.Status)
	assert.Equal(t, "2025-09", run.Period)
	assert.Equal(t, reportKey, run.SrcKey)
	assert.Equal(t, "uptime/2025/09/uptime-report.pdf", run.DestPDFKey)
	assert.Equal(t, "stub", run.Renderer)
	assert.Equal(t, int64(8), run.PDFSize)
	assert.Equal(t, testNow, run.StartedAt)

	require.Len(t, notifier.runs, 1)
	assert.Equal(t, models.RunStatusCompleted, notifier.runs[0].Status)
}
