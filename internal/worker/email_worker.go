package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/tea-tech/simple-inventory/internal/infra"
	"github.com/tea-tech/simple-inventory/internal/service"

	"github.com/rs/zerolog/log"
)

// EmailWorker generates CSV exports and mails them.
type EmailWorker struct {
	exports service.ExportService
	mailer  *infra.Mailer
}

func NewEmailWorker(exports service.ExportService, mailer *infra.Mailer) *EmailWorker {
	return &EmailWorker{exports: exports, mailer: mailer}
}

func (w *EmailWorker) Handle(ctx context.Context, payload []byte) error {
	var job service.EmailExportJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return fmt.Errorf("decode email job: %w", err)
	}

	var buf bytes.Buffer
	rows, err := w.exports.ExportCSV(ctx, &buf, job.EntityType)
	if err != nil {
		return err
	}

	filename := w.exports.ExportFilename(job.EntityType)
	if err := w.mailer.SendCSVExport(job.ToEmail, filename, buf.Bytes()); err != nil {
		return err
	}

	log.Info().Str("to", job.ToEmail).Int("rows", rows).Msg("export emailed")
	return nil
}
