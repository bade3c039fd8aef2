package parser

import (
	"bytes"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/customeros/mailsherpa/mailvalidate"
	"github.com/jhillyerd/enmime"
	"github.com/pkg/errors"

	"github.com/kotsworld/mailsync/dto"
	mailsync_errors "github.com/kotsworld/mailsync/internal/errors"
)

var bracketedAddress = regexp.MustCompile(`<([^>]+)>`)

// HTML-only bodies go through HTMLToPlainText instead of enmime's own conversion.
var envelopeParser = enmime.NewParser(enmime.DisableTextConversion(true))

// Parse decodes a raw RFC822 message. Only an undecodable envelope is an error;
// a bad Date header yields a nil SentAt.
func Parse(raw []byte) (*dto.RawMessage, error) {
	envelope, err := envelopeParser.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrap(mailsync_errors.ErrMessageParse, err.Error())
	}

	fromHeader := envelope.GetHeader("From")
	toHeader := envelope.GetHeader("To")

	msg := &dto.RawMessage{
		MessageID:   strings.TrimSpace(envelope.GetHeader("Message-ID")),
		Subject:     strings.TrimSpace(envelope.GetHeader("Subject")),
		FromHeader:  fromHeader,
		FromAddress: ExtractAddress(fromHeader),
		ToHeader:    toHeader,
		ToAddress:   ExtractAddress(toHeader),
		SentAt:      parseDate(envelope.GetHeader("Date")),
		Body:        extractBody(envelope),
	}

	for _, part := range envelope.Attachments {
		msg.Attachments = append(msg.Attachments, toAttachment(part))
	}
	for _, part := range envelope.Inlines {
		msg.Attachments = append(msg.Attachments, toAttachment(part))
	}

	return msg, nil
}

// ExtractAddress returns the address inside angle brackets, or the trimmed header
// when there are none. Syntactically valid addresses are normalised.
func ExtractAddress(header string) string {
	address := strings.TrimSpace(header)
	if match := bracketedAddress.FindStringSubmatch(header); match != nil {
		address = strings.TrimSpace(match[1])
	}
	if address == "" {
		return ""
	}

	validation := mailvalidate.ValidateEmailSyntax(address)
	if validation.IsValid && validation.CleanEmail != "" {
		return validation.CleanEmail
	}
	return address
}

func parseDate(value string) *time.Time {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	t, err := mail.ParseDate(value)
	if err != nil {
		return nil
	}
	return &t
}

func extractBody(envelope *enmime.Envelope) string {
	if text := strings.TrimSpace(envelope.Text); text != "" {
		return text
	}
	if envelope.HTML == "" {
		return ""
	}
	text, err := HTMLToPlainText(envelope.HTML)
	if err != nil {
		return ""
	}
	return text
}

// HTMLToPlainText strips tags, one line per block element. Link targets are
// appended to the link text since the sign URL lives in an href.
func HTMLToPlainText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	doc.Find("script, style").Each(func(i int, el *goquery.Selection) {
		el.Remove()
	})

	doc.Find("a[href]").Each(func(i int, el *goquery.Selection) {
		if href, ok := el.Attr("href"); ok && !strings.Contains(el.Text(), href) {
			el.SetText(el.Text() + " " + href)
		}
	})

	doc.Find("br, p, div, li, tr, h1, h2, h3, h4, h5, h6").Each(func(i int, el *goquery.Selection) {
		el.AfterHtml("\n")
	})

	var lines []string
	blank := false
	for _, line := range strings.Split(doc.Text(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			blank = len(lines) > 0
			continue
		}
		if blank {
			lines = append(lines, "")
			blank = false
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}

func toAttachment(part *enmime.Part) dto.Attachment {
	return dto.Attachment{
		Filename:    part.FileName,
		ContentType: part.ContentType,
		Content:     part.Content,
	}
}
