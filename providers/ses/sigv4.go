package ses

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
)

const signingService = "ses"

// requestSigner produces the AWS SigV4 Authorization header for one outbound
// carrier call. Header mode only; the URLs this adapter signs never carry a
// query string worth presigning.
type requestSigner struct {
	accessKeyID     string
	secretAccessKey string
	region          string
	now             func() time.Time
}

func (s requestSigner) sign(method string, rawURL string, headers map[string]string, body []byte) (map[string]string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("ses: parse request url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("ses: request url is missing a host")
	}

	now := time.Now
	if s.now != nil {
		now = s.now
	}
	stamp := now().UTC()
	amzDate := stamp.Format("20060102T150405Z")
	dateStamp := stamp.Format("20060102")

	payloadHash := sha256Hex(body)
	signed := map[string]string{}
	for key, value := range headers {
		signed[key] = value
	}
	signed["X-Amz-Date"] = amzDate
	signed["X-Amz-Content-Sha256"] = payloadHash

	canonicalHeaders, headerNames := canonicalHeaderBlock(signed, parsed.Host)
	canonicalRequest := strings.Join([]string{
		strings.ToUpper(strings.TrimSpace(method)),
		canonicalURI(parsed),
		canonicalQueryString(parsed.Query()),
		canonicalHeaders,
		headerNames,
		payloadHash,
	}, "\n")

	credentialScope := dateStamp + "/" + s.region + "/" + signingService + "/aws4_request"
	stringToSign := strings.Join([]string{
		"AWS4-HMAC-SHA256",
		amzDate,
		credentialScope,
		sha256Hex([]byte(canonicalRequest)),
	}, "\n")

	signature := s.signature(dateStamp, stringToSign)
	signed["Authorization"] = fmt.Sprintf(
		"AWS4-HMAC-SHA256 Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		s.accessKeyID,
		credentialScope,
		headerNames,
		signature,
	)
	return signed, nil
}

func (s requestSigner) signature(dateStamp string, stringToSign string) string {
	kDate := hmacSHA256([]byte("AWS4"+s.secretAccessKey), dateStamp)
	kRegion := hmacSHA256(kDate, s.region)
	kService := hmacSHA256(kRegion, signingService)
	kSigning := hmacSHA256(kService, "aws4_request")
	return hex.EncodeToString(hmacSHA256(kSigning, stringToSign))
}

func canonicalURI(requestURL *url.URL) string {
	path := requestURL.EscapedPath()
	if path == "" {
		return "/"
	}
	return path
}

func canonicalHeaderBlock(headers map[string]string, host string) (string, string) {
	normalized := map[string]string{
		"host": strings.ToLower(strings.TrimSpace(host)),
	}
	for key, value := range headers {
		lower := strings.ToLower(strings.TrimSpace(key))
		if lower == "" || lower == "authorization" {
			continue
		}
		trimmed := compressSpaces(value)
		if trimmed == "" {
			continue
		}
		normalized[lower] = trimmed
	}

	keys := make([]string, 0, len(normalized))
	for key := range normalized {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		b.WriteString(key)
		b.WriteString(":")
		b.WriteString(normalized[key])
		b.WriteByte('\n')
	}
	return b.String(), strings.Join(keys, ";")
}

func canonicalQueryString(query url.Values) string {
	if len(query) == 0 {
		return ""
	}
	type entry struct {
		key   string
		value string
	}
	entries := make([]entry, 0, len(query))
	for key, list := range query {
		encodedKey := awsQueryEscape(key)
		if len(list) == 0 {
			entries = append(entries, entry{key: encodedKey})
			continue
		}
		for _, value := range list {
			entries = append(entries, entry{key: encodedKey, value: awsQueryEscape(value)})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].key == entries[j].key {
			return entries[i].value < entries[j].value
		}
		return entries[i].key < entries[j].key
	})

	pairs := make([]string, 0, len(entries))
	for _, item := range entries {
		pairs = append(pairs, item.key+"="+item.value)
	}
	return strings.Join(pairs, "&")
}

func awsQueryEscape(value string) string {
	escaped := url.QueryEscape(value)
	escaped = strings.ReplaceAll(escaped, "+", "%20")
	escaped = strings.ReplaceAll(escaped, "*", "%2A")
	escaped = strings.ReplaceAll(escaped, "%7E", "~")
	return escaped
}

func hmacSHA256(key []byte, value string) []byte {
	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write([]byte(value))
	return mac.Sum(nil)
}

func sha256Hex(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func compressSpaces(value string) string {
	parts := strings.Fields(strings.TrimSpace(value))
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, " ")
}
