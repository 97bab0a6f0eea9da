package crm

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Schema names of the mirrored inquiry entity.
const (
	EntityInquiry = "jmc_inquiry"
	EntityContact = "contact"

	AttrQuestion = "jmc_question"
	AttrResponse = "jmc_response"
	AttrContact  = "jmc_contact"
)

// InquiryMirror maps local inquiries onto jmc_inquiry entities. The remote
// record always shares the local inquiry's id.
type InquiryMirror struct {
	svc Service
}

// NewInquiryMirror wraps a directory Service.
func NewInquiryMirror(svc Service) *InquiryMirror {
	return &InquiryMirror{svc: svc}
}

// Create writes a new jmc_inquiry whose contact is the owning user.
func (m *InquiryMirror) Create(ctx context.Context, id, question, response, contactID string) error {
	eid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("inquiry id: %w", err)
	}
	cid, err := uuid.Parse(contactID)
	if err != nil {
		return fmt.Errorf("contact id: %w", err)
	}

	e := NewEntity(EntityInquiry, eid)
	e.Set(AttrQuestion, question)
	e.Set(AttrResponse, response)
	e.Set(AttrContact, EntityReference{LogicalName: EntityContact, ID: cid})
	_, err = m.svc.Create(ctx, e)
	return err
}

// UpdateQuestion retrieves the mirror (question column only), replaces the
// question and writes it back.
func (m *InquiryMirror) UpdateQuestion(ctx context.Context, id, question string) error {
	eid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("inquiry id: %w", err)
	}
	e, err := m.svc.Retrieve(ctx, EntityInquiry, eid, ColumnSet{AttrQuestion})
	if err != nil {
		return err
	}
	e.Set(AttrQuestion, question)
	return m.svc.Update(ctx, e)
}

// Delete removes the mirror.
func (m *InquiryMirror) Delete(ctx context.Context, id string) error {
	eid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("inquiry id: %w", err)
	}
	return m.svc.Delete(ctx, EntityInquiry, eid)
}

// Response returns the remote jmc_response, which is authoritative over the
// locally stored copy.
func (m *InquiryMirror) Response(ctx context.Context, id string) (string, error) {
	eid, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("inquiry id: %w", err)
	}
	e, err := m.svc.Retrieve(ctx, EntityInquiry, eid, ColumnSet{AttrResponse})
	if err != nil {
		return "", err
	}
	return e.GetString(AttrResponse), nil
}
