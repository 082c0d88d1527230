package contracts

import "io"

type ITokenManagement interface {
	UsedTokens(inputToken int, outputToken int)
	EstimateTokens(text string) int
	TruncateToTokens(text string, maxTokens int) (string, bool)
	DisplayTokens(w io.Writer, providerName string, model string)
	GetCurrentTokenUsage() (total int, input int, output int)
	ClearToken()
}
