package signal

import (
	"encoding/json"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/meetowl/signaling/internal/domain"
)

func (ctl *Controller) handleOffer(id domain.ConnID, data []byte) {
	type offerPayload struct {
		Type  string                    `json:"type"`
		Offer webrtc.SessionDescription `json:"offer"`
		To    string                    `json:"to"`
	}
	var p offerPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("bad offer payload")
		return
	}
	if p.To == "" {
		log.Warn().Str("module", "signal").Str("conn", string(id)).Msg("offer without target")
		return
	}
	ctl.Relay.ForwardOffer(id, domain.ConnID(p.To), p.Offer)
}

func (ctl *Controller) handleAnswer(id domain.ConnID, data []byte) {
	type answerPayload struct {
		Type   string                    `json:"type"`
		Answer webrtc.SessionDescription `json:"answer"`
		To     string                    `json:"to"`
	}
	var p answerPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("bad answer payload")
		return
	}
	if p.To == "" {
		log.Warn().Str("module", "signal").Str("conn", string(id)).Msg("answer without target")
		return
	}
	ctl.Relay.ForwardAnswer(id, domain.ConnID(p.To), p.Answer)
}

func (ctl *Controller) handleCandidate(id domain.ConnID, data []byte) {
	type candidatePayload struct {
		Type      string                  `json:"type"`
		Candidate webrtc.ICECandidateInit `json:"candidate"`
		To        string                  `json:"to"`
	}
	var p candidatePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("bad candidate payload")
		return
	}
	if p.To == "" {
		log.Warn().Str("module", "signal").Str("conn", string(id)).Msg("candidate without target")
		return
	}
	ctl.Relay.ForwardCandidate(id, domain.ConnID(p.To), p.Candidate)
}
