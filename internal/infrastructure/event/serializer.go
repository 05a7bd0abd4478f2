package event

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/medierp/ledger/internal/domain/accounting"
	"github.com/medierp/ledger/internal/domain/cashier"
	"github.com/medierp/ledger/internal/domain/settlement"
	"github.com/medierp/ledger/internal/domain/shared"
)

// EventSerializer turns domain events into outbox payloads and back
type EventSerializer struct {
	mu       sync.RWMutex
	registry map[string]reflect.Type
}

// NewEventSerializer creates an empty serializer
func NewEventSerializer() *EventSerializer {
	return &EventSerializer{registry: make(map[string]reflect.Type)}
}

// NewLedgerEventSerializer creates a serializer knowing every event the
// engine writes to the outbox
func NewLedgerEventSerializer() *EventSerializer {
	s := NewEventSerializer()
	s.Register(accounting.EventTypeEntryPosted, &accounting.EntryPostedEvent{})
	s.Register(accounting.EventTypeFinancialYearCreated, &accounting.FinancialYearEvent{})
	s.Register(accounting.EventTypeFinancialYearOpened, &accounting.FinancialYearEvent{})
	s.Register(accounting.EventTypeFinancialYearClosed, &accounting.FinancialYearEvent{})
	s.Register(accounting.EventTypeFinancialPeriodClosed, &accounting.FinancialPeriodClosedEvent{})

	s.Register(settlement.EventTypeInvoiceIssued, &settlement.InvoiceIssuedEvent{})
	s.Register(settlement.EventTypeInvoiceCancelled, &settlement.InvoiceCancelledEvent{})
	s.Register(settlement.EventTypePaymentRecorded, &settlement.PaymentRecordedEvent{})
	s.Register(settlement.EventTypePatientShareSettled, &settlement.PatientShareSettledEvent{})
	s.Register(settlement.EventTypeCreditNoteCreated, &settlement.CreditNoteCreatedEvent{})

	s.Register(cashier.EventTypeShiftClosed, &cashier.ShiftClosedEvent{})
	return s
}

// Register binds eventType to the concrete type of instance
func (s *EventSerializer) Register(eventType string, instance shared.DomainEvent) {
	t := reflect.TypeOf(instance)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	s.mu.Lock()
	s.registry[eventType] = t
	s.mu.Unlock()
}

// Serialize encodes an event as JSON
func (s *EventSerializer) Serialize(event shared.DomainEvent) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("serialize %s: %w", event.EventType(), err)
	}
	return data, nil
}

// Deserialize decodes a payload into the type registered for eventType
func (s *EventSerializer) Deserialize(eventType string, data []byte) (shared.DomainEvent, error) {
	s.mu.RLock()
	t, ok := s.registry[eventType]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	ptr := reflect.New(t).Interface()
	if err := json.Unmarshal(data, ptr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", eventType, err)
	}
	event, ok := ptr.(shared.DomainEvent)
	if !ok {
		return nil, fmt.Errorf("%s does not implement DomainEvent", t)
	}
	return event, nil
}

// IsRegistered reports whether eventType can be deserialized
func (s *EventSerializer) IsRegistered(eventType string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.registry[eventType]
	return ok
}

// RegisteredTypes returns the registered event types in lexical order
func (s *EventSerializer) RegisteredTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	types := make([]string, 0, len(s.registry))
	for t := range s.registry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
