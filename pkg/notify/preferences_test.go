package notify_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifykit/notifykit/pkg/notify"
)

func TestDefaultPreferences(t *testing.T) {
	t.Parallel()

	prefs := notify.DefaultPreferences("user-1")
	require.Len(t, prefs, len(notify.KnownTypes()))

	seen := make(map[notify.Type]bool)
	for _, p := range prefs {
		assert.Equal(t, "user-1", p.UserID)
		assert.True(t, p.Enabled)
		assert.Equal(t, notify.FrequencyImmediate, p.Frequency)
		assert.Equal(t, []notify.Channel{notify.ChannelInApp}, p.Channels)
		seen[p.Type] = true
	}
	for _, typ := range notify.KnownTypes() {
		assert.True(t, seen[typ], "missing default preference for %s", typ)
	}
}

func TestFilterChannels(t *testing.T) {
	t.Parallel()

	prefs := []notify.Preference{
		{
			UserID:   "user-1",
			Type:     notify.TypeGameInvite,
			Channels: []notify.Channel{notify.ChannelInApp, notify.ChannelEmail},
			Enabled:  true,
		},
		{
			UserID:  "user-1",
			Type:    notify.TypePromotion,
			Enabled: false,
		},
	}

	tests := []struct {
		name       string
		candidates []notify.Channel
		typ        notify.Type
		want       []notify.Channel
	}{
		{
			name:       "intersection keeps allowed channels only",
			candidates: []notify.Channel{notify.ChannelEmail, notify.ChannelSMS},
			typ:        notify.TypeGameInvite,
			want:       []notify.Channel{notify.ChannelEmail},
		},
		{
			name:       "empty candidates yield preference channels",
			candidates: nil,
			typ:        notify.TypeGameInvite,
			want:       []notify.Channel{notify.ChannelInApp, notify.ChannelEmail},
		},
		{
			name:       "disabled preference drops everything",
			candidates: []notify.Channel{notify.ChannelInApp, notify.ChannelEmail},
			typ:        notify.TypePromotion,
			want:       nil,
		},
		{
			name:       "no matching preference drops everything",
			candidates: []notify.Channel{notify.ChannelInApp},
			typ:        notify.TypeReminder,
			want:       nil,
		},
		{
			name:       "no overlap yields empty",
			candidates: []notify.Channel{notify.ChannelSMS, notify.ChannelPush},
			typ:        notify.TypeGameInvite,
			want:       nil,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, notify.FilterChannels(tt.candidates, tt.typ, prefs))
		})
	}
}

func TestFilterChannelsDoesNotAliasPreference(t *testing.T) {
	t.Parallel()

	prefs := []notify.Preference{{
		Type:     notify.TypeSystemAlert,
		Channels: []notify.Channel{notify.ChannelInApp},
		Enabled:  true,
	}}

	out := notify.FilterChannels(nil, notify.TypeSystemAlert, prefs)
	require.Equal(t, []notify.Channel{notify.ChannelInApp}, out)

	out[0] = notify.ChannelSMS
	assert.Equal(t, []notify.Channel{notify.ChannelInApp}, prefs[0].Channels)
}
