package importer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/threadsearch/internal/core/domain"
	"github.com/custodia-labs/threadsearch/internal/logger"
)

// EMLExtension is the extension of single-message RFC 5322 files.
const EMLExtension = ".eml"

// DefaultEMLAccount is used for messages without a Delivered-To header.
const DefaultEMLAccount = "local"

const snippetLength = 160

// importEML saves the thread described by one message file.
func (im *Importer) importEML(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	t, err := parseMessage(f, path)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	if err := im.store.SaveThreads(ctx, []domain.Thread{t}); err != nil {
		return 0, fmt.Errorf("saving thread from %s: %w", path, err)
	}

	logger.Debug("Imported message %s as thread %s", path, t.ID)
	return 1, nil
}

// parseMessage maps a message onto the thread it belongs to. The thread
// ID is the root of the References chain, so replies land on the same
// thread as the message that started it.
func parseMessage(r io.Reader, path string) (domain.Thread, error) {
	msg, err := mail.ReadMessage(r)
	if err != nil {
		return domain.Thread{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	t := domain.Thread{
		ID:        threadID(msg.Header, path),
		AccountID: account(msg.Header),
		Subject:   decodeHeader(msg.Header.Get("Subject")),
	}

	if date, err := msg.Header.Date(); err == nil {
		t.LastMessageAt = date.UTC()
	}

	for _, field := range []string{"From", "To", "Cc"} {
		t.Participants = appendAddresses(t.Participants, msg.Header, field)
	}

	body, err := extractBody(msg)
	if err != nil {
		return domain.Thread{}, err
	}
	t.Snippet = snippet(body)

	return t, nil
}

func threadID(h mail.Header, path string) string {
	if refs := messageIDs(h.Get("References")); len(refs) > 0 {
		return refs[0]
	}
	if ids := messageIDs(h.Get("In-Reply-To")); len(ids) > 0 {
		return ids[0]
	}
	if ids := messageIDs(h.Get("Message-ID")); len(ids) > 0 {
		return ids[0]
	}
	return "eml:" + strings.TrimSuffix(filepath.Base(path), EMLExtension)
}

func messageIDs(v string) []string {
	var ids []string
	for _, f := range strings.Fields(v) {
		id := strings.Trim(f, "<>,")
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func account(h mail.Header) string {
	if addr, err := mail.ParseAddress(h.Get("Delivered-To")); err == nil {
		return strings.ToLower(addr.Address)
	}
	return DefaultEMLAccount
}

func appendAddresses(dst []string, h mail.Header, field string) []string {
	list, err := h.AddressList(field)
	if err != nil {
		return dst
	}
	for _, addr := range list {
		a := strings.ToLower(addr.Address)
		if !contains(dst, a) {
			dst = append(dst, a)
		}
	}
	return dst
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// decodeHeader decodes RFC 2047 encoded words, returning the raw header
// when decoding fails.
func decodeHeader(header string) string {
	if header == "" {
		return ""
	}
	dec := new(mime.WordDecoder)
	decoded, err := dec.DecodeHeader(header)
	if err != nil {
		return header
	}
	return decoded
}

// extractBody returns the text of msg, preferring text/plain parts over
// HTML ones.
func extractBody(msg *mail.Message) (string, error) {
	contentType := msg.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		body, readErr := io.ReadAll(msg.Body)
		if readErr != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrInvalidInput, readErr)
		}
		return string(body), nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return extractMultipartBody(msg.Body, params["boundary"]), nil
	}

	body, err := io.ReadAll(msg.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if mediaType == "text/html" {
		return stripHTMLTags(string(body)), nil
	}
	return string(body), nil
}

func extractMultipartBody(r io.Reader, boundary string) string {
	if boundary == "" {
		return ""
	}

	mr := multipart.NewReader(r, boundary)
	var textParts, htmlParts []string
	for {
		part, err := mr.NextPart()
		if err != nil {
			break
		}

		mediaType, params, parseErr := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if parseErr != nil {
			mediaType = "application/octet-stream"
		}
		content, readErr := io.ReadAll(part)
		part.Close()
		if readErr != nil {
			continue
		}

		switch {
		case mediaType == "text/plain":
			textParts = append(textParts, string(content))
		case mediaType == "text/html":
			htmlParts = append(htmlParts, stripHTMLTags(string(content)))
		case strings.HasPrefix(mediaType, "multipart/"):
			if nested := extractMultipartBody(bytes.NewReader(content), params["boundary"]); nested != "" {
				textParts = append(textParts, nested)
			}
		}
	}

	if len(textParts) > 0 {
		return strings.Join(textParts, "\n")
	}
	return strings.Join(htmlParts, "\n")
}

func stripHTMLTags(html string) string {
	var b strings.Builder
	inTag := false
	for _, r := range html {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// snippet collapses whitespace, drops quoted reply lines and truncates
// to snippetLength runes.
func snippet(body string) string {
	var kept []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, ">") {
			continue
		}
		kept = append(kept, line)
	}
	s := strings.Join(strings.Fields(strings.Join(kept, " ")), " ")
	if utf8.RuneCountInString(s) <= snippetLength {
		return s
	}
	runes := []rune(s)
	return string(runes[:snippetLength-1]) + "…"
}
