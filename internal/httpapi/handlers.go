package httpapi

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"mantaga/internal"
	"mantaga/internal/reconcile"
)

// sourceFromContentType picks the document reader for an upload; JSON is handled separately.
func sourceFromContentType(header string) internal.DocumentSource {
	mediaType, _, _ := mime.ParseMediaType(header)
	switch mediaType {
	case "application/pdf":
		return internal.SourcePDF
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return internal.SourceXLSX
	case "text/csv":
		return internal.SourceCSV
	case "text/html":
		return internal.SourceHTML
	default:
		return internal.SourceText
	}
}

func isJSON(header string) bool {
	mediaType, _, _ := mime.ParseMediaType(header)
	return mediaType == "application/json"
}

// ingestOrder accepts a raw text or PDF body, or JSON {"text": "..."}.
func (r *Router) ingestOrder(w http.ResponseWriter, req *http.Request) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	source := sourceFromContentType(req.Header.Get("Content-Type"))
	if isJSON(req.Header.Get("Content-Type")) {
		var payload struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			respondError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
			return
		}
		source, body = internal.SourceText, []byte(payload.Text)
	}
	if source != internal.SourceText && source != internal.SourcePDF {
		respondError(w, http.StatusUnsupportedMediaType, "purchase orders are accepted as text or PDF")
		return
	}

	res, err := r.ingest.IngestDocument(req.Context(), source, req.URL.Query().Get("ref"), body)
	if err != nil {
		r.respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, res)
}

func (r *Router) listOrders(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 {
		limit = 100
	}
	orders, err := r.db.ListPurchaseOrders(req.Context(), q.Get("status"), limit)
	if err != nil {
		r.respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

type orderResponse struct {
	Order   internal.PurchaseOrder `json:"order"`
	Summary reconcile.Summary      `json:"summary"`
}

func (r *Router) getOrder(w http.ResponseWriter, req *http.Request) {
	po, summary, err := r.recon.Order(req.Context(), mux.Vars(req)["poNumber"])
	if err != nil {
		r.respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orderResponse{Order: po, Summary: summary})
}

func (r *Router) saveInvoice(w http.ResponseWriter, req *http.Request) {
	var body reconcile.SaveInvoiceRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	body.PONumber = mux.Vars(req)["poNumber"]

	res, err := r.recon.SaveInvoice(req.Context(), body)
	if err != nil {
		r.respondErr(w, err)
		return
	}
	status := http.StatusOK
	if len(res.LineErrors) > 0 {
		status = http.StatusMultiStatus
	}
	respondJSON(w, status, res)
}

func (r *Router) brandSync(w http.ResponseWriter, req *http.Request) {
	res, err := r.recon.SyncBrandPerformance(req.Context(), mux.Vars(req)["poNumber"])
	if err != nil {
		r.respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (r *Router) brandPerformance(w http.ResponseWriter, req *http.Request) {
	rows, err := r.db.ListBrandPerformance(req.Context(), mux.Vars(req)["poNumber"])
	if err != nil {
		r.respondErr(w, err)
		return
	}
	if rows == nil {
		rows = []internal.BrandPerformanceRow{}
	}
	respondJSON(w, http.StatusOK, rows)
}

func (r *Router) listSkus(w http.ResponseWriter, req *http.Request) {
	var (
		skus []internal.SkuRecord
		err  error
	)
	if client := strings.TrimSpace(req.URL.Query().Get("client")); client != "" {
		skus, err = r.db.ListSkusByClient(req.Context(), client)
	} else {
		skus, err = r.db.ListSkus(req.Context())
	}
	if err != nil {
		r.respondErr(w, err)
		return
	}
	if skus == nil {
		skus = []internal.SkuRecord{}
	}
	respondJSON(w, http.StatusOK, skus)
}

func (r *Router) addSku(w http.ResponseWriter, req *http.Request) {
	var rec internal.SkuRecord
	if err := json.NewDecoder(req.Body).Decode(&rec); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	saved, err := r.catalog.AddSku(req.Context(), rec)
	if err != nil {
		r.respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, saved)
}

// importSkus takes a JSON array of records, or a spreadsheet body (xlsx, csv, html).
func (r *Router) importSkus(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	ref := req.URL.Query().Get("ref")

	if isJSON(req.Header.Get("Content-Type")) {
		var recs []internal.SkuRecord
		if err := json.NewDecoder(req.Body).Decode(&recs); err != nil {
			respondError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
			return
		}
		res, err := r.ingest.ImportSkus(ctx, internal.SourceRows, ref, recs)
		if err != nil {
			r.respondErr(w, err)
			return
		}
		respondJSON(w, http.StatusOK, res)
		return
	}

	source := sourceFromContentType(req.Header.Get("Content-Type"))
	if source == internal.SourceText || source == internal.SourcePDF {
		respondError(w, http.StatusUnsupportedMediaType, "catalog batches are accepted as JSON, xlsx, csv or html")
		return
	}
	body, err := io.ReadAll(req.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := r.ingest.IngestDocument(ctx, source, ref, body)
	if err != nil {
		r.respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (r *Router) skuReport(w http.ResponseWriter, req *http.Request) {
	rep, err := r.catalog.Report(req.Context())
	if err != nil {
		r.respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rep)
}
