package respond

import (
	"regexp"
)

var (
	// 具体的なパターンから順に適用する
	anthropicKeyPattern   = regexp.MustCompile(`sk-ant-[a-zA-Z0-9\-_]+`)
	openaiKeyPattern      = regexp.MustCompile(`sk-[a-zA-Z0-9]{10,}`)
	huggingFaceKeyPattern = regexp.MustCompile(`hf_[a-zA-Z0-9]{10,}`)
	bearerPattern         = regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9\-_.=]+`)

	// credentials embedded in URLs (user:password@host)
	urlPasswordPattern = regexp.MustCompile(`://([^:/@\s]+):([^@\s]+)@`)
)

// SanitizeError returns the error message with API keys, bearer tokens and
// URL credentials masked.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	msg = anthropicKeyPattern.ReplaceAllString(msg, "sk-ant-****")
	msg = openaiKeyPattern.ReplaceAllString(msg, "sk-****")
	msg = huggingFaceKeyPattern.ReplaceAllString(msg, "hf_****")
	msg = bearerPattern.ReplaceAllString(msg, "Bearer ****")
	msg = urlPasswordPattern.ReplaceAllString(msg, "://$1:****@")

	return msg
}
