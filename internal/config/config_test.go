package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidate_TableDriven(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		raw       string
		want      string
		wantErr   bool
		errIsType error
	}{
		{name: "max-retries valid", key: KeyMaxRetries, raw: "5", want: "5"},
		{name: "max-retries zero allowed", key: KeyMaxRetries, raw: "0", want: "0"},
		{name: "max-retries negative rejected", key: KeyMaxRetries, raw: "-1", wantErr: true},
		{name: "max-retries non-numeric rejected", key: KeyMaxRetries, raw: "abc", wantErr: true},
		{name: "backoff-base valid", key: KeyBackoffBase, raw: "3", want: "3"},
		{name: "backoff-base below one rejected", key: KeyBackoffBase, raw: "0", wantErr: true},
		{name: "poll-interval valid fractional", key: KeyPollInterval, raw: "0.5", want: "0.5"},
		{name: "poll-interval zero rejected", key: KeyPollInterval, raw: "0", wantErr: true},
		{name: "poll-interval negative rejected", key: KeyPollInterval, raw: "-1", wantErr: true},
		{name: "stuck-timeout valid", key: KeyStuckTimeout, raw: "60", want: "60"},
		{name: "stuck-timeout negative rejected", key: KeyStuckTimeout, raw: "-1", wantErr: true},
		{name: "unknown key rejected", key: "not-a-key", raw: "1", wantErr: true, errIsType: ErrUnknownKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Validate(tt.key, tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				if tt.errIsType != nil {
					require.True(t, errors.Is(err, tt.errIsType))
				}
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestParseValues_FillsDefaultsForMissingKeys(t *testing.T) {
	values, err := ParseValues(map[string]string{KeyMaxRetries: "7"})
	require.NoError(t, err)
	require.Equal(t, 7, values.MaxRetries)
	require.Equal(t, 2, values.BackoffBase)
	require.Equal(t, 1.0, values.PollIntervalSeconds)
	require.Equal(t, 3600, values.StuckTimeoutSeconds)
}

func TestParseValues_RejectsCorruptStoredValue(t *testing.T) {
	_, err := ParseValues(map[string]string{KeyMaxRetries: "not-a-number"})
	require.Error(t, err)
}

func TestIsKnownKey(t *testing.T) {
	require.True(t, IsKnownKey(KeyMaxRetries))
	require.False(t, IsKnownKey("nonsense"))
}
