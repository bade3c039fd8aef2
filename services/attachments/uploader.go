package attachments

import (
	"context"
	"fmt"
	"strings"

	"github.com/opentracing/opentracing-go"

	"github.com/kotsworld/mailsync/dto"
	"github.com/kotsworld/mailsync/interfaces"
	"github.com/kotsworld/mailsync/internal/enum"
	"github.com/kotsworld/mailsync/internal/logger"
	"github.com/kotsworld/mailsync/internal/tracing"
)

const pdfContentType = "application/pdf"

type Uploader struct {
	storage interfaces.StorageService
	log     logger.Logger
}

func NewUploader(storage interfaces.StorageService, log logger.Logger) *Uploader {
	return &Uploader{storage: storage, log: log}
}

func ObjectKey(bookingID string, category enum.DocumentCategory, filename string) string {
	return fmt.Sprintf("contracts/%s/%s/%s", bookingID, category.Lower(), filename)
}

// UploadFirstPDF stores the first PDF attachment and returns its URL. When an upload fails
// the next PDF is tried. It returns nil when nothing could be stored.
func (u *Uploader) UploadFirstPDF(ctx context.Context, bookingID string, category enum.DocumentCategory, attachments []dto.Attachment) *string {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Uploader.UploadFirstPDF")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, bookingID)
	span.SetTag("attachments.count", len(attachments))

	for _, attachment := range attachments {
		filename, ok := pdfFilename(bookingID, category, attachment)
		if !ok {
			continue
		}

		key := ObjectKey(bookingID, category, filename)
		url, err := u.storage.Put(ctx, attachment.Content, key, pdfContentType)
		if err != nil {
			tracing.TraceErr(span, err)
			u.log.Warnf("[%s][%s] Failed to upload %s: %v", bookingID, category, key, err)
			continue
		}

		u.log.Infof("[%s][%s] Uploaded %s", bookingID, category, key)
		return &url
	}

	u.log.Infof("[%s][%s] No PDF attachment stored", bookingID, category)
	return nil
}

// pdfFilename accepts parts named *.pdf. A nameless part qualifies only when it is typed
// application/pdf and gets a generated name; nameless parts of any other type, such as inline
// images and signature logos, are never stored.
func pdfFilename(bookingID string, category enum.DocumentCategory, attachment dto.Attachment) (string, bool) {
	if len(attachment.Content) == 0 {
		return "", false
	}
	name := strings.TrimSpace(attachment.Filename)
	if name == "" {
		if !strings.EqualFold(attachment.ContentType, pdfContentType) {
			return "", false
		}
		return fmt.Sprintf("%s_%s.pdf", bookingID, category.Lower()), true
	}
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		return "", false
	}
	return name, true
}
