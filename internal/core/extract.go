package core

import "time"

// Extractor turns one raw chat message into a structured entry
// candidate. It is safe for concurrent use: the configuration is
// read-only after construction.
type Extractor struct {
	cfg InferConfig
}

// NewExtractor builds an extractor with the given inference policy.
func NewExtractor(cfg InferConfig) *Extractor {
	return &Extractor{cfg: cfg}
}

// Extract parses rawText and assembles a candidate stamped at now.
// It never fails: text without a usable numeral becomes a note-only
// candidate with a nil amount, preserving the original text verbatim.
//
// When a message carries several numerals only the first kept token
// becomes the amount; the rest remain part of RawText. Documented
// limitation, not silent loss.
func (x *Extractor) Extract(rawText, ownerID string, now time.Time) Candidate {
	cand := Candidate{
		OwnerID:   ownerID,
		RawText:   rawText,
		Category:  x.cfg.InferCategory(rawText),
		Timestamp: now,
	}

	for _, token := range Numbers(rawText) {
		if !x.cfg.Keep(token) {
			continue
		}
		amount := token.Value
		if x.cfg.InferSign(rawText) == SignDebit {
			amount = amount.Neg()
		}
		cand.Amount = &amount
		break
	}
	return cand
}
