package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/meetowl/signaling/internal/domain"
)

func (ctl *Controller) handleSpeaking(id domain.ConnID, data []byte) {
	type speakingPayload struct {
		Type       string `json:"type"`
		IsSpeaking bool   `json:"isSpeaking"`
	}
	var p speakingPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("bad speaking payload")
		return
	}
	ctl.Relay.Speaking(id, p.IsSpeaking)
}
