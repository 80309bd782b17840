package pipeline

import (
	"bytes"
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mantaga/internal"
	"mantaga/internal/config"
	"mantaga/internal/logger"
	"mantaga/internal/storage"
	"mantaga/internal/util"
)

const (
	EmailFetched   = "fetched"
	EmailProcessed = "processed"
	EmailSkipped   = "skipped"
	EmailFailed    = "failed"
)

// ProcessingService turns stored LPO mails into purchase orders and catalog updates.
type ProcessingService struct {
	db     *storage.DB
	ingest *IngestService
	log    zerolog.Logger
}

func NewProcessingService(db *storage.DB, cfg config.Config) *ProcessingService {
	return &ProcessingService{db: db, ingest: NewIngestService(db, cfg), log: logger.WithComponent("process")}
}

type ProcessResult struct {
	EmailID    int
	Orders     []string
	Duplicates []string
	SkuRecords int
	Skipped    bool
}

func (s *ProcessingService) ProcessByProviderMessageID(ctx context.Context, provider, messageID string) (ProcessResult, error) {
	email, err := s.db.GetEmailByProviderMessageID(ctx, provider, messageID)
	if err != nil {
		return ProcessResult{}, err
	}
	return s.ProcessEmail(ctx, email)
}

// ProcessPending handles up to limit fetched mails. A mail that fails is marked failed and the
// rest of the batch continues.
func (s *ProcessingService) ProcessPending(ctx context.Context, limit int, provider string) (int, []string, error) {
	pending, err := s.db.ListEmailsByStatus(ctx, EmailFetched, limit)
	if err != nil {
		return 0, nil, err
	}
	processedEmails := 0
	orders := []string{}
	for _, email := range pending {
		if provider != "" && email.Provider != provider {
			continue
		}
		res, err := s.ProcessEmail(ctx, email)
		if err != nil {
			if ctx.Err() != nil {
				return processedEmails, orders, ctx.Err()
			}
			s.log.Error().Err(err).Int("email_id", email.ID).Str("message_id", email.MessageID).Msg("email processing failed")
			_ = s.db.UpdateEmailStatus(ctx, email.ID, EmailFailed)
			continue
		}
		processedEmails++
		orders = append(orders, res.Orders...)
	}
	return processedEmails, orders, nil
}

func (s *ProcessingService) ProcessEmail(ctx context.Context, email internal.EmailRow) (ProcessResult, error) {
	start := time.Now()
	raw, err := os.ReadFile(email.RawRef)
	if err != nil {
		return ProcessResult{}, err
	}

	docs, err := ExtractDocumentsFromEmail(raw)
	if err != nil {
		return ProcessResult{}, err
	}

	res := ProcessResult{EmailID: email.ID}
	subject := util.FirstNonEmpty(docs.Subject, email.Subject)
	detect := DetectPurchaseOrder(subject, docs.Text, docs.AttachmentNames)
	if !detect.IsPurchaseOrder {
		res.Skipped = true
		_ = s.db.UpdateEmailStatus(ctx, email.ID, EmailSkipped)
		s.recordRun(ctx, email, start, res)
		s.log.Info().Int("email_id", email.ID).Float64("score", detect.Score).Msg("email is not a purchase order")
		return res, nil
	}

	ref := email.MessageID
	for _, att := range docs.Attachments {
		switch att.Kind {
		case internal.SourcePDF:
			ex, err := s.ingest.extractor.ExtractPDF(att.Content)
			if err != nil {
				s.log.Warn().Err(err).Str("attachment", att.FileName).Msg("pdf attachment unreadable")
				continue
			}
			s.storeOrder(ctx, email, ex, ref+"/"+att.FileName, &res)
		case internal.SourceXLSX, internal.SourceCSV, internal.SourceHTML:
			var recs []internal.SkuRecord
			switch att.Kind {
			case internal.SourceXLSX:
				recs, err = ExtractSkusFromXLSX(att.Content)
			case internal.SourceCSV:
				recs, err = ExtractSkusFromCSV(bytes.NewReader(att.Content))
			default:
				recs, err = ExtractSkusFromHTML(string(att.Content))
			}
			if err != nil {
				s.log.Warn().Err(err).Str("attachment", att.FileName).Msg("sheet attachment has no catalog rows")
				continue
			}
			if _, err := s.ingest.ImportSkus(ctx, att.Kind, ref+"/"+att.FileName, recs); err != nil {
				return res, err
			}
			res.SkuRecords += len(recs)
		}
	}

	// An order typed into the mail body is only taken when no attachment produced one.
	if len(res.Orders) == 0 && len(res.Duplicates) == 0 && docs.Text != "" {
		if ex, err := s.ingest.extractor.extract(internal.SourceEmail, docs.Text); err == nil && len(ex.Order.Lines) > 0 {
			s.storeOrder(ctx, email, ex, ref, &res)
		}
	}

	status := EmailProcessed
	if len(res.Orders) == 0 && len(res.Duplicates) == 0 && res.SkuRecords == 0 {
		status = EmailSkipped
		res.Skipped = true
	}
	if err := s.db.UpdateEmailStatus(ctx, email.ID, status); err != nil {
		return ProcessResult{}, err
	}
	s.recordRun(ctx, email, start, res)
	return res, nil
}

func (s *ProcessingService) storeOrder(ctx context.Context, email internal.EmailRow, ex Extraction, ref string, res *ProcessResult) {
	po := ex.Order.PONumber
	if _, err := s.ingest.IngestExtraction(ctx, ex, ref); err != nil {
		if !internal.IsDuplicateKey(err) {
			s.log.Warn().Err(err).Str("po_number", po).Msg("purchase order not stored")
			return
		}
		res.Duplicates = append(res.Duplicates, po)
	} else {
		res.Orders = append(res.Orders, po)
	}
	if err := s.db.LinkEmailOrder(ctx, email.ID, po); err != nil {
		s.log.Warn().Err(err).Str("po_number", po).Msg("email link not stored")
	}
}

func (s *ProcessingService) recordRun(ctx context.Context, email internal.EmailRow, start time.Time, res ProcessResult) {
	if err := s.db.InsertRun(ctx, uuid.NewString(), "email", email.MessageID,
		map[string]float64{"totalMs": float64(time.Since(start).Milliseconds())},
		map[string]int{"orders": len(res.Orders), "duplicates": len(res.Duplicates), "skuRecords": res.SkuRecords}); err != nil {
		s.log.Warn().Err(err).Int("email_id", email.ID).Msg("run not recorded")
	}
}
