package service

import (
	"context"

	"github.com/Freeeeeet/academy_portal/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const leadListLimit = 100

type LeadService struct {
	leads         LeadStore
	consultations ConsultationStore
	validator     *Validator
	logger        *zap.Logger
}

func NewLeadService(leads LeadStore, consultations ConsultationStore, validator *Validator, logger *zap.Logger) *LeadService {
	return &LeadService{
		leads:         leads,
		consultations: consultations,
		validator:     validator,
		logger:        logger,
	}
}

// CreateLead заводит лида вручную из админки
func (s *LeadService) CreateLead(ctx context.Context, req model.LeadRequest) (*model.Lead, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	source := req.Source
	if source == "" {
		source = "admin"
	}

	lead := &model.Lead{
		ID:          uuid.New(),
		ParentName:  req.ParentName,
		Email:       req.Email,
		Phone:       req.Phone,
		StudentName: req.StudentName,
		YearLevel:   req.YearLevel,
		School:      req.School,
		Subjects:    req.Subjects,
		Notes:       req.Notes,
		Source:      source,
		Status:      model.LeadStatusNew,
	}

	if err := s.leads.Create(ctx, lead); err != nil {
		return nil, storageErr("create lead", err)
	}

	s.logger.Info("Lead created", zap.String("lead_id", lead.ID.String()), zap.String("source", source))
	return lead, nil
}

// GetLead returns the lead with its consultations
func (s *LeadService) GetLead(ctx context.Context, id uuid.UUID) (*model.Lead, error) {
	lead, err := s.leads.GetByID(ctx, id)
	if err != nil {
		return nil, storageErr("get lead", err)
	}
	if lead == nil {
		return nil, notFound("lead")
	}

	consultations, err := s.consultations.GetByLeadID(ctx, id)
	if err != nil {
		return nil, storageErr("get lead consultations", err)
	}
	lead.Consultations = consultations

	return lead, nil
}

// ListLeads returns leads of a view (pipeline by default). An explicit status overrides the view.
func (s *LeadService) ListLeads(ctx context.Context, view, status string) ([]*model.Lead, error) {
	var statuses []model.LeadStatus

	switch {
	case status != "":
		st := model.LeadStatus(status)
		if !st.Valid() {
			return nil, invalid("unknown lead status %q", status)
		}
		statuses = []model.LeadStatus{st}
	case view == "":
		statuses = model.LeadViewPipeline.Statuses()
	default:
		v := model.LeadView(view)
		switch v {
		case model.LeadViewPipeline, model.LeadViewActive, model.LeadViewAll:
			statuses = v.Statuses()
		default:
			return nil, invalid("unknown lead view %q", view)
		}
	}

	leads, err := s.leads.List(ctx, statuses, leadListLimit)
	if err != nil {
		return nil, storageErr("list leads", err)
	}

	return leads, nil
}

// UpdateLeadStatus переводит лида на другой этап воронки
func (s *LeadService) UpdateLeadStatus(ctx context.Context, id uuid.UUID, req model.LeadStatusRequest) (*model.Lead, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	status := model.LeadStatus(req.Status)
	if !status.Valid() {
		return nil, invalid("unknown lead status %q", req.Status)
	}

	// Закрыть лида с назначенной консультацией нельзя: слот остался бы занятым
	if status.Closed() {
		consultations, err := s.consultations.GetByLeadID(ctx, id)
		if err != nil {
			return nil, storageErr("get lead consultations", err)
		}
		for _, c := range consultations {
			if c.Status == model.ConsultationStatusScheduled {
				return nil, invalid("lead has a scheduled consultation %s; cancel it first", c.ID)
			}
		}
	}

	updated, err := s.leads.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, storageErr("update lead status", err)
	}
	if !updated {
		return nil, notFound("lead")
	}

	s.logger.Info("Lead status changed",
		zap.String("lead_id", id.String()),
		zap.String("status", string(status)),
	)

	return s.GetLead(ctx, id)
}
