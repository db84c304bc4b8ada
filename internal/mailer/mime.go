package mailer

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
	"time"
)

// buildMIME assembles the raw RFC 5322 message for a delivery. The
// messageID is gateway-assigned (see smtp.go) and embedded as the
// Message-ID header so receipts can be correlated with relay logs.
func buildMIME(msg *Message, messageID string) []byte {
	var buf bytes.Buffer

	writeHeader(&buf, "From", msg.From)
	writeHeader(&buf, "To", strings.Join(msg.To, ", "))
	writeHeader(&buf, "Subject", msg.Subject)
	writeHeader(&buf, "Message-ID", "<"+messageID+">")
	writeHeader(&buf, "Date", time.Now().UTC().Format(time.RFC1123Z))
	writeHeader(&buf, "MIME-Version", "1.0")

	if len(msg.Attachments) == 0 {
		writeBodyInline(&buf, msg)
		return buf.Bytes()
	}

	mixed := multipart.NewWriter(&buf)
	writeHeader(&buf, "Content-Type", fmt.Sprintf("multipart/mixed; boundary=%q", mixed.Boundary()))
	buf.WriteString("\r\n")

	bodyHeader := textproto.MIMEHeader{}
	if msg.TextBody != "" && msg.HTMLBody != "" {
		boundary := multipart.NewWriter(io.Discard).Boundary()
		bodyHeader.Set("Content-Type", fmt.Sprintf("multipart/alternative; boundary=%q", boundary))
		part, _ := mixed.CreatePart(bodyHeader)
		nested := multipart.NewWriter(part)
		_ = nested.SetBoundary(boundary)
		writeAlternative(nested, msg)
		nested.Close()
	} else {
		bodyHeader.Set("Content-Type", bodyContentType(msg))
		part, _ := mixed.CreatePart(bodyHeader)
		fmt.Fprint(part, bodyContent(msg))
	}

	for _, att := range msg.Attachments {
		contentType := att.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header := textproto.MIMEHeader{}
		header.Set("Content-Type", contentType)
		header.Set("Content-Transfer-Encoding", "base64")
		header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", att.Filename))
		part, _ := mixed.CreatePart(header)
		fmt.Fprint(part, base64.StdEncoding.EncodeToString(att.Content))
	}
	mixed.Close()

	return buf.Bytes()
}

// writeBodyInline writes the body of an attachment-free message directly
// after the top-level headers.
func writeBodyInline(buf *bytes.Buffer, msg *Message) {
	if msg.TextBody != "" && msg.HTMLBody != "" {
		// Writer is created before the Content-Type header goes out so the
		// boundary is known; nothing hits buf until the first CreatePart.
		alt := multipart.NewWriter(buf)
		writeHeader(buf, "Content-Type", fmt.Sprintf("multipart/alternative; boundary=%q", alt.Boundary()))
		buf.WriteString("\r\n")
		writeAlternative(alt, msg)
		alt.Close()
		return
	}
	writeHeader(buf, "Content-Type", bodyContentType(msg))
	buf.WriteString("\r\n")
	buf.WriteString(bodyContent(msg))
	buf.WriteString("\r\n")
}

// writeAlternative writes text then html parts, least preferred first.
func writeAlternative(w *multipart.Writer, msg *Message) {
	text, _ := w.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/plain; charset=UTF-8"}})
	fmt.Fprint(text, msg.TextBody)
	html, _ := w.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/html; charset=UTF-8"}})
	fmt.Fprint(html, msg.HTMLBody)
}

func bodyContentType(msg *Message) string {
	if msg.HTMLBody != "" {
		return "text/html; charset=UTF-8"
	}
	return "text/plain; charset=UTF-8"
}

func bodyContent(msg *Message) string {
	if msg.HTMLBody != "" {
		return msg.HTMLBody
	}
	return msg.TextBody
}

func writeHeader(buf *bytes.Buffer, key, value string) {
	buf.WriteString(key)
	buf.WriteString(": ")
	buf.WriteString(value)
	buf.WriteString("\r\n")
}
