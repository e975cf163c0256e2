package suggest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"rxledger/bank-import/internal/importerr"
	"rxledger/bank-import/internal/logging"
	"rxledger/bank-import/internal/models"
)

const (
	geminiModelName = "gemini-1.0-pro"
	defaultTimeout  = 30 * time.Second
)

// Gemini implements Suggester against the Google Gemini API.
type Gemini struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	log     logging.Logger
	timeout time.Duration
}

// NewGemini creates a Gemini-backed suggester. The API key comes from
// configuration, never from the transaction path.
func NewGemini(ctx context.Context, apiKey string, logger logging.Logger) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is not set")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &Gemini{
		client:  client,
		model:   client.GenerativeModel(geminiModelName),
		log:     logging.OrNop(logger),
		timeout: defaultTimeout,
	}, nil
}

// Close releases the underlying API client.
func (g *Gemini) Close() error {
	return g.client.Close()
}

func (g *Gemini) Suggest(ctx context.Context, tx *models.PersistedTransaction, accounts []AccountOption) (*Proposal, error) {
	if len(accounts) == 0 {
		return nil, fmt.Errorf("no candidate accounts to offer")
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	prompt := buildPrompt(tx, accounts)
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, &importerr.CollaboratorTimeoutError{
				Collaborator: "gemini",
				Operation:    "suggest",
				Err:          err,
			}
		}
		return nil, fmt.Errorf("gemini request: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty gemini response")
	}

	text := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])
	proposal, err := parseProposal(text)
	if err != nil {
		return nil, err
	}
	if err := validate(proposal, accounts); err != nil {
		return nil, err
	}

	g.log.WithFields(
		logging.Field{Key: logging.FieldTransaction, Value: tx.ID},
		logging.Field{Key: "account_id", Value: proposal.AccountID},
		logging.Field{Key: "confidence", Value: proposal.Confidence},
	).Debug("Gemini proposed a classification")

	return proposal, nil
}

func buildPrompt(tx *models.PersistedTransaction, accounts []AccountOption) string {
	direction := "money received"
	if tx.IsOutflow() {
		direction = "money spent"
	}

	return fmt.Sprintf(`Classify the following pharmacy bank statement line:
Description: %s
Reference: %s
Amount: %s (%s)
Date: %s

Assign it to exactly one of these ledger accounts (listed as "id: name"):
%s
Respond in exactly this format:
Account: [account id]
Type: [receive, spend or transfer]
Confidence: [number between 0 and 1]
Description: [brief explanation of the classification]`,
		tx.Description,
		tx.Reference,
		tx.Amount.StringFixed(2),
		direction,
		tx.Date.Format("2006-01-02"),
		accountList(accounts))
}

// parseProposal extracts the structured fields from a model response. Missing
// or malformed fields fail the whole proposal; there is no partial credit for
// untrusted input.
func parseProposal(response string) (*Proposal, error) {
	var p Proposal
	var haveAccount, haveType, haveConfidence bool

	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Account:"):
			raw := strings.TrimSpace(strings.TrimPrefix(line, "Account:"))
			id, err := strconv.ParseInt(strings.Trim(raw, "[]"), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("unparseable account %q in model response", raw)
			}
			p.AccountID = id
			haveAccount = true
		case strings.HasPrefix(line, "Type:"):
			p.Type = models.RuleType(strings.ToLower(strings.TrimSpace(strings.TrimPrefix(line, "Type:"))))
			haveType = true
		case strings.HasPrefix(line, "Confidence:"):
			raw := strings.TrimSpace(strings.TrimPrefix(line, "Confidence:"))
			conf, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("unparseable confidence %q in model response", raw)
			}
			p.Confidence = conf
			haveConfidence = true
		case strings.HasPrefix(line, "Description:"):
			p.Rationale = strings.TrimSpace(strings.TrimPrefix(line, "Description:"))
		}
	}

	if !haveAccount || !haveType || !haveConfidence {
		return nil, fmt.Errorf("model response missing required fields")
	}
	return &p, nil
}
