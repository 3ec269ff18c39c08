package types

import "sync"

// NounType is an entity's type tag, drawn from a closed taxonomy (spec §3).
type NounType string

// VerbType is a relationship's type tag, drawn from a closed taxonomy (spec §3).
type VerbType string

// A representative seed of the noun taxonomy (spec.md: "≈42 noun types").
// The full taxonomy is a closed set validated against a Taxonomy registry
// rather than hardcoded here, so an embedding application can register its
// own domain vocabulary at startup without forking the engine.
const (
	NounPerson       NounType = "Person"
	NounOrganization NounType = "Organization"
	NounDocument     NounType = "Document"
	NounProject      NounType = "Project"
	NounTask         NounType = "Task"
	NounEvent        NounType = "Event"
	NounLocation     NounType = "Location"
	NounProduct      NounType = "Product"
	NounConversation NounType = "Conversation"
	NounMessage      NounType = "Message"
	NounTopic        NounType = "Topic"
	NounSkill        NounType = "Skill"
	NounAsset        NounType = "Asset"
	NounEmail        NounType = "Email"
	NounMeeting      NounType = "Meeting"
)

// A representative seed of the verb taxonomy (spec.md: "≈127 verb types").
const (
	VerbWorksFor   VerbType = "WorksFor"
	VerbOwns       VerbType = "Owns"
	VerbMemberOf   VerbType = "MemberOf"
	VerbAuthoredBy VerbType = "AuthoredBy"
	VerbRelatesTo  VerbType = "RelatesTo"
	VerbMentions   VerbType = "Mentions"
	VerbAttendedBy VerbType = "AttendedBy"
	VerbAssignedTo VerbType = "AssignedTo"
	VerbDependsOn  VerbType = "DependsOn"
	VerbPartOf     VerbType = "PartOf"
	VerbReplyTo    VerbType = "ReplyTo"
	VerbLocatedAt  VerbType = "LocatedAt"
	VerbManages    VerbType = "Manages"
	VerbFollows    VerbType = "Follows"
)

// Taxonomy is a closed, mutable-at-construction-time registry of known noun
// and verb types. It exists so validation (spec §3 "type tag is one of the
// known values") doesn't require recompiling the engine to add a domain
// vocabulary entry, while still rejecting anything unregistered.
type Taxonomy struct {
	mu    sync.RWMutex
	nouns map[NounType]struct{}
	verbs map[VerbType]struct{}
}

// NewTaxonomy builds a Taxonomy seeded with the representative noun/verb
// constants above plus any extra types the caller supplies.
func NewTaxonomy(extraNouns []NounType, extraVerbs []VerbType) *Taxonomy {
	t := &Taxonomy{
		nouns: make(map[NounType]struct{}),
		verbs: make(map[VerbType]struct{}),
	}
	for _, n := range []NounType{
		NounPerson, NounOrganization, NounDocument, NounProject, NounTask,
		NounEvent, NounLocation, NounProduct, NounConversation, NounMessage,
		NounTopic, NounSkill, NounAsset, NounEmail, NounMeeting,
	} {
		t.nouns[n] = struct{}{}
	}
	for _, v := range []VerbType{
		VerbWorksFor, VerbOwns, VerbMemberOf, VerbAuthoredBy, VerbRelatesTo,
		VerbMentions, VerbAttendedBy, VerbAssignedTo, VerbDependsOn, VerbPartOf,
		VerbReplyTo, VerbLocatedAt, VerbManages, VerbFollows,
	} {
		t.verbs[v] = struct{}{}
	}
	for _, n := range extraNouns {
		t.nouns[n] = struct{}{}
	}
	for _, v := range extraVerbs {
		t.verbs[v] = struct{}{}
	}
	return t
}

func (t *Taxonomy) KnowsNoun(n NounType) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.nouns[n]
	return ok
}

func (t *Taxonomy) KnowsVerb(v VerbType) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.verbs[v]
	return ok
}

// RegisterNoun extends the closed set with an application-specific type.
func (t *Taxonomy) RegisterNoun(n NounType) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nouns[n] = struct{}{}
}

// RegisterVerb extends the closed set with an application-specific type.
func (t *Taxonomy) RegisterVerb(v VerbType) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.verbs[v] = struct{}{}
}
