package core

import "strings"

// EventTypeTest is the marker tag used by test-fire probes. It is not part
// of the subscribable vocabulary: subscriptions cannot request it and
// dispatch refuses it.
const EventTypeTest = "webhook.test"

// EventTypeDescriptor pairs an event type tag with its display description.
// The description is UI-facing only and never travels on the wire.
type EventTypeDescriptor struct {
	Tag         string `json:"tag"`
	Description string `json:"description"`
}

var eventTypeCatalog = []EventTypeDescriptor{
	{Tag: "vendor.created", Description: "A third-party vendor was registered"},
	{Tag: "vendor.updated", Description: "A vendor's profile or contract data changed"},
	{Tag: "vendor.deleted", Description: "A vendor was removed from the register"},
	{Tag: "vendor.risk_changed", Description: "A vendor's computed risk rating changed"},
	{Tag: "document.uploaded", Description: "A compliance document was uploaded"},
	{Tag: "document.parsed", Description: "Automated extraction finished for a document"},
	{Tag: "document.linked", Description: "A document was linked to a vendor or control"},
	{Tag: "incident.created", Description: "An ICT incident was opened"},
	{Tag: "incident.classified", Description: "An incident received a severity classification"},
	{Tag: "incident.reported", Description: "An incident report was filed with the authority"},
	{Tag: "incident.closed", Description: "An incident was resolved and closed"},
	{Tag: "roi.exported", Description: "A register of information export was generated"},
	{Tag: "roi.submitted", Description: "A register of information was submitted"},
	{Tag: "test.completed", Description: "A resilience test run finished"},
	{Tag: "test.finding_created", Description: "A resilience test produced a finding"},
	{Tag: "compliance.maturity_changed", Description: "An assessment maturity score changed"},
	{Tag: "compliance.snapshot_created", Description: "A point-in-time compliance snapshot was taken"},
	{Tag: "security.login", Description: "A user signed in"},
	{Tag: "security.mfa_enrolled", Description: "A user enrolled a second factor"},
	{Tag: "security.role_changed", Description: "A user's role assignment changed"},
}

var eventTypeIndex = buildEventTypeIndex()

func buildEventTypeIndex() map[string]EventTypeDescriptor {
	index := make(map[string]EventTypeDescriptor, len(eventTypeCatalog))
	for _, descriptor := range eventTypeCatalog {
		index[descriptor.Tag] = descriptor
	}
	return index
}

// EventTypes returns the fixed event vocabulary in catalog order. The
// returned slice is a copy; callers may mutate it freely.
func EventTypes() []EventTypeDescriptor {
	return append([]EventTypeDescriptor(nil), eventTypeCatalog...)
}

// IsValidEventType reports whether tag is part of the subscribable
// vocabulary. The test-fire marker is deliberately excluded.
func IsValidEventType(tag string) bool {
	_, ok := eventTypeIndex[strings.TrimSpace(tag)]
	return ok
}

// DescribeEventType resolves the display description for a tag.
func DescribeEventType(tag string) (EventTypeDescriptor, bool) {
	descriptor, ok := eventTypeIndex[strings.TrimSpace(tag)]
	return descriptor, ok
}

// normalizeEventTypes trims, drops empties, and dedupes while preserving the
// caller's ordering. It does not validate membership; see validateEventTypes.
func normalizeEventTypes(tags []string) []string {
	if len(tags) == 0 {
		return []string{}
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func validateEventTypes(tags []string) error {
	for _, tag := range tags {
		if !IsValidEventType(tag) {
			return newFieldValidationError("events", "unknown event type: "+tag)
		}
	}
	return nil
}
