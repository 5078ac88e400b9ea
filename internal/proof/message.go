package proof

import (
	"bytes"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/foxzi/inkwell/internal/asset"
)

// SubjectPrefix is prepended to the subject of every proof
const SubjectPrefix = "[PROOF]"

// Message is a rendered proof ready for submission
type Message struct {
	ID   string
	From string
	To   []string
	Data []byte
}

// BuildMessage renders an asset as multipart/alternative proof email
func BuildMessage(a *asset.Asset, from string, to []string, now time.Time) (*Message, error) {
	domain := domainOf(from)
	if domain == "" {
		domain = "localhost"
	}
	id := fmt.Sprintf("%s@%s", uuid.New().String(), domain)
	boundary := uuid.New().String()

	subject := SubjectPrefix + " " + a.Content.SubjectLine

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", now.Format(time.RFC1123Z))
	fmt.Fprintf(&buf, "Message-ID: <%s>\r\n", id)
	fmt.Fprintf(&buf, "X-Inkwell-Asset-ID: %s\r\n", a.ID)
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary)
	buf.WriteString("\r\n")

	parts := []struct {
		contentType string
		body        string
	}{
		{"text/plain; charset=utf-8", a.PlainText},
		{"text/html; charset=utf-8", a.InlinedHTML},
	}
	for _, p := range parts {
		fmt.Fprintf(&buf, "--%s\r\n", boundary)
		fmt.Fprintf(&buf, "Content-Type: %s\r\n", p.contentType)
		buf.WriteString("Content-Transfer-Encoding: quoted-printable\r\n")
		buf.WriteString("\r\n")
		if err := writeQuoted(&buf, p.body); err != nil {
			return nil, err
		}
		buf.WriteString("\r\n")
	}
	fmt.Fprintf(&buf, "--%s--\r\n", boundary)

	return &Message{
		ID:   id,
		From: from,
		To:   to,
		Data: buf.Bytes(),
	}, nil
}

func writeQuoted(buf *bytes.Buffer, body string) error {
	w := quotedprintable.NewWriter(buf)
	if _, err := w.Write([]byte(body)); err != nil {
		return fmt.Errorf("failed to encode body: %w", err)
	}
	return w.Close()
}

func domainOf(addr string) string {
	addr = strings.TrimSuffix(strings.TrimSpace(addr), ">")
	i := strings.LastIndex(addr, "@")
	if i < 0 {
		return ""
	}
	return strings.ToLower(addr[i+1:])
}
