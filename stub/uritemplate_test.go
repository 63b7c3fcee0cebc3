package stub

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestURITemplateMatcherMatchesPathOnly(t *testing.T) {
	m, err := NewURITemplateMatcher("/widgets/{id}")
	require.NoError(t, err)

	require.True(t, m.Match(Request{URL: "https://api.example.com/widgets/42"}))
	require.False(t, m.Match(Request{URL: "https://api.example.com/widgets/42/extra"}))
}

func TestURITemplateMatcherMatchesFullURL(t *testing.T) {
	m, err := NewURITemplateMatcher("https://api.example.com/widgets/{id}")
	require.NoError(t, err)

	require.True(t, m.Match(Request{URL: "https://api.example.com/widgets/7"}))
	require.False(t, m.Match(Request{URL: "https://other.example.com/widgets/7"}))
}

func TestURITemplateMatcherMultiplePlaceholders(t *testing.T) {
	m, err := NewURITemplateMatcher("/accounts/{acct}/widgets/{id}")
	require.NoError(t, err)

	require.True(t, m.Match(Request{URL: "https://api.example.com/accounts/acme/widgets/9"}))
	require.False(t, m.Match(Request{URL: "https://api.example.com/accounts/acme"}))
}

func TestURITemplateMatcherRejectsSlashWithinPlaceholder(t *testing.T) {
	m, err := NewURITemplateMatcher("/widgets/{id}")
	require.NoError(t, err)
	require.False(t, m.Match(Request{URL: "https://api.example.com/widgets/1/2"}))
}
