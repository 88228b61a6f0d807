package models

import (
	"time"

	id "cohort/pkg/domain"
	dErrors "cohort/pkg/domain-errors"
)

// Participant is the canonical contact record every entry channel (public
// self-service, manual staff entry, bulk import) resolves into.
//
// Invariant: at least one of Email or Phone is present. Both fields are
// independently unique in storage; either one can find the record.
type Participant struct {
	ID       id.ParticipantID `json:"id"`
	FullName string           `json:"full_name,omitempty"`
	Email    string           `json:"email,omitempty"`
	Phone    string           `json:"phone,omitempty"`

	Gender         string `json:"gender,omitempty"`
	Organization   string `json:"organization,omitempty"`
	State          string `json:"state,omitempty"`
	AgeGroup       string `json:"age_group,omitempty"`
	ReferralSource string `json:"referral_source,omitempty"`

	// Data is the free-form bag of dynamic form answers.
	Data map[string]any `json:"data,omitempty"`

	// Programs materializes the participant side of the program/participant
	// relation. Membership is unique.
	Programs []id.ProgramID `json:"programs,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Attributes is one contact attempt's payload, from any channel.
type Attributes struct {
	FullName       string
	Email          string
	Phone          string
	Gender         string
	Organization   string
	State          string
	AgeGroup       string
	ReferralSource string
	Data           map[string]any
}

// HasContact reports whether the attempt carries at least one contact method.
func (a Attributes) HasContact() bool {
	return a.Email != "" || a.Phone != ""
}

// New creates a participant from a first contact attempt.
func New(participantID id.ParticipantID, attrs Attributes, now time.Time) (*Participant, error) {
	if !attrs.HasContact() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "contact method required")
	}
	p := &Participant{
		ID:             participantID,
		FullName:       attrs.FullName,
		Email:          attrs.Email,
		Phone:          attrs.Phone,
		Gender:         attrs.Gender,
		Organization:   attrs.Organization,
		State:          attrs.State,
		AgeGroup:       attrs.AgeGroup,
		ReferralSource: attrs.ReferralSource,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if len(attrs.Data) > 0 {
		p.Data = make(map[string]any, len(attrs.Data))
		for k, v := range attrs.Data {
			p.Data[k] = v
		}
	}
	return p, nil
}

// Reconcile merges a later contact attempt into the record: every attribute
// is first-write-wins (filled only when previously empty) except FullName,
// which a later submission always overwrites. Data bag entries are added only
// for keys not already present.
//
// Kept as an explicit function rather than scattered mutation so the merge
// rules are unit-testable on their own.
func (p *Participant) Reconcile(attrs Attributes, now time.Time) {
	if attrs.FullName != "" {
		p.FullName = attrs.FullName
	}
	fillIfEmpty(&p.Email, attrs.Email)
	fillIfEmpty(&p.Phone, attrs.Phone)
	fillIfEmpty(&p.Gender, attrs.Gender)
	fillIfEmpty(&p.Organization, attrs.Organization)
	fillIfEmpty(&p.State, attrs.State)
	fillIfEmpty(&p.AgeGroup, attrs.AgeGroup)
	fillIfEmpty(&p.ReferralSource, attrs.ReferralSource)

	if len(attrs.Data) > 0 {
		if p.Data == nil {
			p.Data = make(map[string]any, len(attrs.Data))
		}
		for k, v := range attrs.Data {
			if _, exists := p.Data[k]; !exists {
				p.Data[k] = v
			}
		}
	}
	p.UpdatedAt = now
}

// HasProgram reports whether the participant already belongs to the program.
func (p *Participant) HasProgram(programID id.ProgramID) bool {
	for _, existing := range p.Programs {
		if existing == programID {
			return true
		}
	}
	return false
}

// AddProgram appends a program to the membership set, idempotently.
func (p *Participant) AddProgram(programID id.ProgramID, now time.Time) {
	if p.HasProgram(programID) {
		return
	}
	p.Programs = append(p.Programs, programID)
	p.UpdatedAt = now
}

func fillIfEmpty(dst *string, v string) {
	if *dst == "" && v != "" {
		*dst = v
	}
}
