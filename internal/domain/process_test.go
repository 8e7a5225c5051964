package domain

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseOutput_JSON(t *testing.T) {
	out := ParseOutput("{\"message\":{\"content\":\"hi\"}}\n")
	require.Equal(t, OutcomeJSON, out.Kind)
	require.JSONEq(t, `{"message":{"content":"hi"}}`, string(out.JSON))
	require.Equal(t, http.StatusOK, out.StatusCode())

	body, err := out.Body()
	require.NoError(t, err)
	require.JSONEq(t, `{"message":{"content":"hi"}}`, string(body))
}

func TestParseOutput_TextFallback(t *testing.T) {
	cases := map[string]string{
		"plain":      "plain text",
		"padded":     "  plain text \n",
		"two values": "{\"a\":1}\n{\"b\":2}",
		"empty":      "",
	}
	for name, stdout := range cases {
		t.Run(name, func(t *testing.T) {
			out := ParseOutput(stdout)
			require.Equal(t, OutcomeText, out.Kind)
			require.Equal(t, http.StatusOK, out.StatusCode())
		})
	}

	body, err := ParseOutput(" plain text \n").Body()
	require.NoError(t, err)
	require.JSONEq(t, `{"output":"plain text"}`, string(body))
}

func TestFailure_Body(t *testing.T) {
	out := Failure("main.py failed", "boom")
	require.Equal(t, http.StatusInternalServerError, out.StatusCode())

	body, err := out.Body()
	require.NoError(t, err)
	require.JSONEq(t, `{"error":"main.py failed","details":"boom"}`, string(body))
}
