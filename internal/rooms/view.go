package rooms

import "github.com/eratosthenes/geoguess-server/internal/geo"

// MemberView is the wire-level, camelCase projection of a Member: it
// never carries PrivateID or SocketID, which are server secrets
// (spec.md §3).
type MemberView struct {
	PublicID         string      `json:"publicId"`
	Name             string      `json:"name"`
	AvatarEmoji      string      `json:"avatarEmoji"`
	Score            uint64      `json:"score"`
	IsHost           bool        `json:"isHost"`
	DescriptionIndex int         `json:"descriptionIndex"`
	LastGuess        *geo.LatLng `json:"lastGuess,omitempty"`
	SubmittedGuess   bool        `json:"submittedGuess"`
	LastRoundScore   *uint64     `json:"lastRoundScore,omitempty"`
	IsMuted          bool        `json:"isMuted"`
}

// View projects a Member onto its wire representation.
func (m *Member) View() MemberView {
	return MemberView{
		PublicID:         m.PublicID,
		Name:             m.Name,
		AvatarEmoji:      m.AvatarEmoji,
		Score:            m.Score,
		IsHost:           m.IsHost,
		DescriptionIndex: m.DescriptionIndex,
		LastGuess:        m.LastGuess,
		SubmittedGuess:   m.SubmittedGuess,
		LastRoundScore:   m.LastRoundScore,
		IsMuted:          m.IsMuted,
	}
}

// StatusView is the wire-level projection of Status.
type StatusView struct {
	Type             StatusKind  `json:"type"`
	PreviousLocation *geo.LatLng `json:"previousLocation,omitempty"`
	CurrentLocation  *geo.LatLng `json:"currentLocation,omitempty"`
}

// View projects Status onto its wire representation.
func (s Status) View() StatusView {
	v := StatusView{Type: s.Kind}
	switch s.Kind {
	case StatusWaiting:
		v.PreviousLocation = s.PreviousLocation
	case StatusPlaying:
		loc := s.CurrentLocation
		v.CurrentLocation = &loc
	}
	return v
}

// BotPayloadView is the wire-level, tagged projection of a BotPayload.
type BotPayloadView struct {
	Type          BotPayloadKind `json:"type"`
	RoundNumber   int            `json:"roundNumber,omitempty"`
	RoundsPerGame int            `json:"roundsPerGame,omitempty"`
	Username      string         `json:"username,omitempty"`
}

func (p BotPayload) View() BotPayloadView {
	return BotPayloadView{
		Type:          p.Kind,
		RoundNumber:   p.RoundNumber,
		RoundsPerGame: p.RoundsPerGame,
		Username:      p.Username,
	}
}

// ChatEntryView is the wire-level, tagged projection of a ChatEntry:
// "chatMessage" for player-authored entries, "botMessage" for bot ones.
type ChatEntryView struct {
	Type          string          `json:"type"`
	ID            uint64          `json:"id"`
	From          string          `json:"from,omitempty"`
	Content       string          `json:"content,omitempty"`
	AttachmentIDs []string        `json:"attachmentIds,omitempty"`
	Payload       *BotPayloadView `json:"payload,omitempty"`
}

// View projects a ChatEntry onto its wire representation.
func (c ChatEntry) View() ChatEntryView {
	if c.IsBot {
		payload := c.Bot.View()
		return ChatEntryView{Type: "botMessage", ID: c.ID, Payload: &payload}
	}
	ids := make([]string, 0, len(c.Attachments))
	for _, a := range c.Attachments {
		ids = append(ids, a.ID)
	}
	return ChatEntryView{
		Type:          "chatMessage",
		ID:            c.ID,
		From:          c.AuthorPublicID,
		Content:       c.Content,
		AttachmentIDs: ids,
	}
}
