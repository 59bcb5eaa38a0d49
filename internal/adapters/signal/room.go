package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/meetowl/signaling/internal/domain"
)

func (ctl *Controller) handleJoin(id domain.ConnID, data []byte) {
	type joinPayload struct {
		Type     string `json:"type"`
		RoomID   string `json:"roomId"`
		UserID   string `json:"userId"`
		UserName string `json:"userName"`
	}
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("bad join payload")
		return
	}
	if p.RoomID == "" {
		log.Warn().Str("module", "signal").Str("conn", string(id)).Msg("join without room id")
		return
	}
	part, err := domain.NewParticipant(p.UserID, p.UserName)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("join with invalid identity")
		return
	}
	ctl.Relay.Join(id, domain.RoomID(p.RoomID), part)
}
