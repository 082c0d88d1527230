package token_management

import (
	"fmt"
	"io"
	"sync"
	"unicode/utf8"

	"github.com/meysamhadeli/codedoc/constants/lipgloss"
	"github.com/meysamhadeli/codedoc/token_management/contracts"
)

// charsPerToken is the rough ratio used when no tokenizer is available.
const charsPerToken = 4

// TokenManager implementation
type tokenManager struct {
	mutex           sync.Mutex
	usedToken       int
	usedInputToken  int
	usedOutputToken int
}

// NewTokenManager creates a new token manager
func NewTokenManager() contracts.ITokenManagement {
	return &tokenManager{}
}

// UsedTokens accumulates the token count reported by a provider.
func (tm *tokenManager) UsedTokens(inputToken int, outputToken int) {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	tm.usedInputToken += inputToken
	tm.usedOutputToken += outputToken
	tm.usedToken += inputToken + outputToken
}

// EstimateTokens approximates the token count of text from its rune count.
func (tm *tokenManager) EstimateTokens(text string) int {
	runes := utf8.RuneCountInString(text)
	return (runes + charsPerToken - 1) / charsPerToken
}

// TruncateToTokens cuts text so that its estimate fits maxTokens.
// The cut falls on a rune boundary. The bool reports whether anything was removed.
func (tm *tokenManager) TruncateToTokens(text string, maxTokens int) (string, bool) {
	if maxTokens <= 0 || tm.EstimateTokens(text) <= maxTokens {
		return text, false
	}

	limit := maxTokens * charsPerToken
	count := 0
	for i := range text {
		if count == limit {
			return text[:i], true
		}
		count++
	}
	return text, false
}

func (tm *tokenManager) DisplayTokens(w io.Writer, providerName string, model string) {
	total, input, output := tm.GetCurrentTokenUsage()

	tokenInfo := fmt.Sprintf("Token Used: %d (input %d / output %d) - Provider: %s - Model: %s", total, input, output, providerName, model)
	fmt.Fprintln(w, lipgloss.BoxStyle.Render(tokenInfo))
}

func (tm *tokenManager) GetCurrentTokenUsage() (total int, input int, output int) {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()
	return tm.usedToken, tm.usedInputToken, tm.usedOutputToken
}

func (tm *tokenManager) ClearToken() {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	tm.usedToken = 0
	tm.usedInputToken = 0
	tm.usedOutputToken = 0
}
