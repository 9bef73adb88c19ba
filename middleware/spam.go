package middleware

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Markup and URI schemes that are rejected outright, whatever the spam score.
var harmfulPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<script[\s\S]*?>[\s\S]*?</script>`),
	regexp.MustCompile(`(?is)<iframe[\s\S]*?>[\s\S]*?</iframe>`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)data:text/html`),
	regexp.MustCompile(`(?i)vbscript:`),
}

// Heuristic spam indicators; each match adds one point. The repeated-character
// rule needs a backreference, which RE2 lacks, so it is checked by hand below.
var spamPatterns = []*regexp.Regexp{
	// shouting, known spam phrases, excessive punctuation, raw URLs
	regexp.MustCompile(`^[A-Z\s!]{20,}$`),
	regexp.MustCompile(`(?i)free money|click here|urgent|winner|congratulations`),
	regexp.MustCompile(`[!?]{5,}`),
	regexp.MustCompile(`(?i)http[s]?://|www\.`),
}

const spamRejectThreshold = 3

// hasLongCharRun reports whether any character repeats more than ten times in
// a row.
func hasLongCharRun(s string) bool {
	var prev rune
	run := 0
	for _, r := range s {
		if r == prev {
			run++
			if run >= 11 {
				return true
			}
		} else {
			prev = r
			run = 1
		}
	}
	return false
}

// isShortRepetitive reports whether s is a short unit of 1-5 characters
// repeated end to end at least four times.
func isShortRepetitive(s string) bool {
	for unit := 1; unit <= 5 && unit <= len(s); unit++ {
		if len(s)%unit != 0 {
			continue
		}
		count := len(s) / unit
		if count >= 4 && strings.Repeat(s[:unit], count) == s {
			return true
		}
	}
	return false
}

// SpamScore returns the heuristic score for a message and its sender name.
// Exported so the gate and its tests share one definition.
func SpamScore(senderName, body string) int {
	score := 0
	for _, p := range spamPatterns {
		if p.MatchString(body) || p.MatchString(senderName) {
			score++
		}
	}
	if hasLongCharRun(body) || hasLongCharRun(senderName) {
		score++
	}
	if len(body) < 20 && isShortRepetitive(body) {
		score += 2
	}
	return score
}

func containsHarmfulContent(s string) bool {
	for _, p := range harmfulPatterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// SpamGate screens create requests before they reach the handler. The checks
// are best-effort heuristics; false positives and negatives are accepted.
func SpamGate(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body struct {
			SenderName string `json:"senderName"`
			Message    string `json:"message"`
		}
		// Parsing problems are left for the handler to report properly.
		if err := c.BodyParser(&body); err != nil {
			return c.Next()
		}

		if containsHarmfulContent(body.Message) || containsHarmfulContent(body.SenderName) {
			logger.Warn("rejected harmful content", zap.String("ip", clientIP(c)))
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   "SPAM_REJECTED",
				"message": "Message contains potentially harmful content",
			})
		}

		score := SpamScore(body.SenderName, strings.TrimSpace(body.Message))
		if score >= spamRejectThreshold {
			logger.Warn("rejected spam",
				zap.String("ip", clientIP(c)), zap.Int("spamScore", score))
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   "SPAM_REJECTED",
				"message": "Your message contains content that appears to be spam. Please revise and try again.",
			})
		}
		if score > 0 {
			logger.Info("message accepted with spam score",
				zap.String("ip", clientIP(c)), zap.Int("spamScore", score))
		}
		return c.Next()
	}
}
