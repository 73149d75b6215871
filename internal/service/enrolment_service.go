package service

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/Freeeeeet/academy_portal/internal/events"
	"github.com/Freeeeeet/academy_portal/internal/model"
	"github.com/Freeeeeet/academy_portal/internal/notify"
	"github.com/Freeeeeet/academy_portal/internal/payment"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ContinuationLink is handed to the admin to send to the parent
type ContinuationLink struct {
	EnrolmentID uuid.UUID `json:"enrolmentId"`
	URL         string    `json:"url"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// EnrolmentPrefill is what a redeemed token pre-fills in the enrolment form
type EnrolmentPrefill struct {
	EnrolmentID uuid.UUID        `json:"enrolmentId"`
	ParentName  string           `json:"parentName"`
	ParentEmail string           `json:"parentEmail"`
	ParentPhone string           `json:"parentPhone"`
	Address     string           `json:"address"`
	ExpiresAt   time.Time        `json:"expiresAt"`
	Students    []PrefillStudent `json:"students"`
}

type PrefillStudent struct {
	StudentName string   `json:"studentName"`
	YearLevel   string   `json:"yearLevel"`
	School      string   `json:"school"`
	Subjects    []string `json:"subjects"`
}

// EnrolmentResult is returned after submission. CheckoutURL is empty when
// no checkout was requested or the payment provider failed.
type EnrolmentResult struct {
	Enrolment   *model.Enrolment `json:"enrolment"`
	CheckoutURL string           `json:"checkoutUrl,omitempty"`
}

type EnrolmentService struct {
	tx             Transactor
	enrolments     EnrolmentStore
	leads          LeadStore
	validator      *Validator
	dispatcher     *Dispatcher
	gateway        payment.Gateway
	publicBaseURL  string
	tokenTTL       time.Duration
	tokenRetention time.Duration
	now            func() time.Time
	logger         *zap.Logger
}

func NewEnrolmentService(
	tx Transactor,
	enrolments EnrolmentStore,
	leads LeadStore,
	validator *Validator,
	dispatcher *Dispatcher,
	publicBaseURL string,
	tokenTTL time.Duration,
	tokenRetention time.Duration,
	logger *zap.Logger,
) *EnrolmentService {
	return &EnrolmentService{
		tx:             tx,
		enrolments:     enrolments,
		leads:          leads,
		validator:      validator,
		dispatcher:     dispatcher,
		publicBaseURL:  strings.TrimRight(publicBaseURL, "/"),
		tokenTTL:       tokenTTL,
		tokenRetention: tokenRetention,
		now:            time.Now,
		logger:         logger,
	}
}

// WithCheckout enables checkout session creation after submission
func (s *EnrolmentService) WithCheckout(gateway payment.Gateway) *EnrolmentService {
	s.gateway = gateway
	return s
}

// IssueContinuationLink выпускает одноразовую ссылку на продолжение записи.
// Повторный выпуск заменяет токен черновика, старая ссылка перестаёт работать.
func (s *EnrolmentService) IssueContinuationLink(ctx context.Context, leadID uuid.UUID) (*ContinuationLink, error) {
	token, hash, err := newToken()
	if err != nil {
		return nil, err
	}

	expiresAt := s.now().Add(s.tokenTTL).UTC()

	var (
		lead      *model.Lead
		enrolment *model.Enrolment
	)

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		lead, err = s.leads.GetByID(ctx, leadID)
		if err != nil {
			return storageErr("get lead", err)
		}
		if lead == nil {
			return notFound("lead")
		}

		enrolment, err = s.enrolments.GetDraftByLeadID(ctx, leadID)
		if err != nil {
			return storageErr("get draft enrolment", err)
		}

		if enrolment == nil {
			enrolment = &model.Enrolment{
				ID:             uuid.New(),
				LeadID:         &lead.ID,
				ParentName:     lead.ParentName,
				ParentEmail:    lead.Email,
				ParentPhone:    lead.Phone,
				Status:         model.EnrolmentStatusDraft,
				TokenHash:      &hash,
				TokenExpiresAt: &expiresAt,
			}
			if err := s.enrolments.Create(ctx, enrolment); err != nil {
				return storageErr("create enrolment", err)
			}
		} else {
			if err := s.enrolments.SetToken(ctx, enrolment.ID, hash, expiresAt); err != nil {
				return storageErr("set enrolment token", err)
			}
		}

		// Уже зачисленного лида назад по воронке не двигаем
		if lead.Status != model.LeadStatusEnrolled && lead.Status != model.LeadStatusActive {
			if _, err := s.leads.UpdateStatus(ctx, lead.ID, model.LeadStatusEnrolmentSent); err != nil {
				return storageErr("update lead status", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	link := &ContinuationLink{
		EnrolmentID: enrolment.ID,
		URL:         s.publicBaseURL + "/enrol?token=" + url.QueryEscape(token),
		ExpiresAt:   expiresAt,
	}

	s.logger.Info("Continuation link issued",
		zap.String("lead_id", leadID.String()),
		zap.String("enrolment_id", enrolment.ID.String()),
		zap.Time("expires_at", expiresAt),
	)

	s.dispatcher.Emit(ctx,
		events.New(events.TypeEnrolmentLinkIssued, leadID.String(), map[string]any{
			"enrolment_id": enrolment.ID,
			"email":        lead.Email,
			"parent_name":  lead.ParentName,
			"url":          link.URL,
			"expires_at":   expiresAt,
		}),
		"",
	)

	return link, nil
}

// RedeemToken проверяет токен и возвращает данные для предзаполнения формы.
// Токен при этом не гасится.
func (s *EnrolmentService) RedeemToken(ctx context.Context, token string) (*EnrolmentPrefill, error) {
	enrolment, err := s.lookupToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if err := tokenStateErr(enrolment.TokenState(s.now())); err != nil {
		return nil, err
	}

	prefill := &EnrolmentPrefill{
		EnrolmentID: enrolment.ID,
		ParentName:  enrolment.ParentName,
		ParentEmail: enrolment.ParentEmail,
		ParentPhone: enrolment.ParentPhone,
		Address:     enrolment.Address,
		ExpiresAt:   *enrolment.TokenExpiresAt,
		Students:    []PrefillStudent{},
	}

	if enrolment.LeadID != nil {
		lead, err := s.leads.GetByID(ctx, *enrolment.LeadID)
		if err != nil {
			return nil, storageErr("get lead", err)
		}
		if lead != nil && lead.StudentName != "" {
			prefill.Students = append(prefill.Students, PrefillStudent{
				StudentName: lead.StudentName,
				YearLevel:   lead.YearLevel,
				School:      lead.School,
				Subjects:    lead.Subjects,
			})
		}
	}

	return prefill, nil
}

// SubmitEnrolment сохраняет запись. Токен (если есть) гасится в той же транзакции.
// Ошибка платёжного шлюза не откатывает запись.
func (s *EnrolmentService) SubmitEnrolment(ctx context.Context, req model.EnrolmentRequest) (*EnrolmentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	students, err := buildStudents(req.Students)
	if err != nil {
		return nil, err
	}

	if req.Token != "" && !wellFormedToken(req.Token) {
		return nil, ErrInvalidToken
	}

	now := s.now()
	var enrolment *model.Enrolment

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if req.Token != "" {
			enrolment, err = s.consumeToken(ctx, req.Token, now)
			if err != nil {
				return err
			}
		} else {
			enrolment = &model.Enrolment{
				ID:     uuid.New(),
				Status: model.EnrolmentStatusDraft,
			}
			if err := s.enrolments.Create(ctx, enrolment); err != nil {
				return storageErr("create enrolment", err)
			}
		}

		enrolment.ParentName = req.ParentName
		enrolment.ParentEmail = req.ParentEmail
		enrolment.ParentPhone = req.ParentPhone
		enrolment.Address = req.Address

		if err := s.enrolments.Submit(ctx, enrolment, now); err != nil {
			return storageErr("submit enrolment", err)
		}

		for _, st := range students {
			st.ID = uuid.New()
			st.EnrolmentID = enrolment.ID
			if err := s.enrolments.AddStudent(ctx, st); err != nil {
				return storageErr("add enrolment student", err)
			}
		}
		enrolment.Students = students

		if enrolment.LeadID != nil {
			if _, err := s.leads.UpdateStatus(ctx, *enrolment.LeadID, model.LeadStatusEnrolled); err != nil {
				return storageErr("update lead status", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	weekly := 0
	for _, st := range students {
		weekly += st.WeeklyHours
	}

	s.logger.Info("Enrolment submitted",
		zap.String("enrolment_id", enrolment.ID.String()),
		zap.Int("students", len(students)),
		zap.Int("weekly_hours", weekly),
		zap.Bool("via_token", req.Token != ""),
	)

	key := enrolment.ID.String()
	if enrolment.LeadID != nil {
		key = enrolment.LeadID.String()
	}
	s.dispatcher.Emit(ctx,
		events.New(events.TypeEnrolmentSubmitted, key, map[string]any{
			"enrolment_id": enrolment.ID,
			"email":        enrolment.ParentEmail,
			"parent_name":  enrolment.ParentName,
			"students":     len(students),
			"weekly_hours": weekly,
		}),
		notify.EnrolmentSubmitted(enrolment.ParentName, len(students), weekly),
	)

	result := &EnrolmentResult{Enrolment: enrolment}
	if req.Checkout && s.gateway != nil {
		result.CheckoutURL = s.startCheckout(ctx, enrolment)
	}

	return result, nil
}

// GetEnrolment returns the enrolment with its students
func (s *EnrolmentService) GetEnrolment(ctx context.Context, id uuid.UUID) (*model.Enrolment, error) {
	enrolment, err := s.enrolments.GetByID(ctx, id)
	if err != nil {
		return nil, storageErr("get enrolment", err)
	}
	if enrolment == nil {
		return nil, notFound("enrolment")
	}

	students, err := s.enrolments.GetStudents(ctx, id)
	if err != nil {
		return nil, storageErr("get enrolment students", err)
	}
	enrolment.Students = students

	return enrolment, nil
}

// SweepExpiredTokens стирает хэши давно истёкших неиспользованных токенов.
// Недавно истёкшие остаются, чтобы по ним возвращалось TokenExpired.
func (s *EnrolmentService) SweepExpiredTokens(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.tokenRetention)

	cleared, err := s.enrolments.ClearExpiredTokens(ctx, cutoff)
	if err != nil {
		return 0, storageErr("clear expired tokens", err)
	}

	if cleared > 0 {
		s.logger.Info("Expired continuation tokens cleared",
			zap.Int64("count", cleared),
			zap.Time("cutoff", cutoff),
		)
	}

	return cleared, nil
}

func (s *EnrolmentService) lookupToken(ctx context.Context, token string) (*model.Enrolment, error) {
	if !wellFormedToken(token) {
		return nil, ErrInvalidToken
	}

	hash := hashToken(token)
	enrolment, err := s.enrolments.GetByTokenHash(ctx, hash)
	if err != nil {
		return nil, storageErr("get enrolment by token", err)
	}
	if enrolment == nil || enrolment.TokenHash == nil || !hashesEqual(*enrolment.TokenHash, hash) {
		return nil, ErrInvalidToken
	}

	return enrolment, nil
}

// consumeToken гасит токен условным UPDATE; при неудаче определяет причину
func (s *EnrolmentService) consumeToken(ctx context.Context, token string, now time.Time) (*model.Enrolment, error) {
	enrolment, err := s.enrolments.ConsumeToken(ctx, hashToken(token), now)
	if err != nil {
		return nil, storageErr("consume token", err)
	}
	if enrolment != nil {
		return enrolment, nil
	}

	existing, err := s.lookupToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := tokenStateErr(existing.TokenState(now)); err != nil {
		return nil, err
	}
	return nil, ErrInvalidToken
}

func (s *EnrolmentService) startCheckout(ctx context.Context, enrolment *model.Enrolment) string {
	items := make([]payment.LineItem, 0)
	for _, st := range enrolment.Students {
		for _, subject := range st.Subjects {
			items = append(items, payment.LineItem{
				Description: fmt.Sprintf("%s: %s (%s)", st.StudentName, subject, st.YearLevel),
				Quantity:    st.SubjectHours[subject],
			})
		}
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, payment.CheckoutRequest{
		EnrolmentID:   enrolment.ID,
		CustomerEmail: enrolment.ParentEmail,
		SuccessURL:    s.publicBaseURL + "/enrol/success?enrolment=" + enrolment.ID.String(),
		CancelURL:     s.publicBaseURL + "/enrol/cancelled?enrolment=" + enrolment.ID.String(),
		Items:         items,
	})
	if err != nil {
		s.logger.Error("Checkout session failed, enrolment kept",
			zap.String("enrolment_id", enrolment.ID.String()),
			zap.Error(fmt.Errorf("%w: %w", ErrDependencyFailure, err)),
		)
		return ""
	}

	if err := s.enrolments.SetCheckout(ctx, enrolment.ID, session.ID, session.URL); err != nil {
		s.logger.Error("Failed to store checkout session",
			zap.String("enrolment_id", enrolment.ID.String()),
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
	} else {
		enrolment.CheckoutSessionID = &session.ID
		enrolment.CheckoutURL = &session.URL
	}

	return session.URL
}

func tokenStateErr(state model.TokenState) error {
	switch state {
	case model.TokenStateValid:
		return nil
	case model.TokenStateUsed:
		return ErrTokenAlreadyUsed
	case model.TokenStateExpired:
		return ErrTokenExpired
	default:
		return ErrInvalidToken
	}
}

// buildStudents проверяет согласованность предметов и часов и считает недельную нагрузку
func buildStudents(reqs []model.EnrolmentStudentRequest) ([]*model.EnrolmentStudent, error) {
	students := make([]*model.EnrolmentStudent, 0, len(reqs))

	for i, r := range reqs {
		for _, subject := range r.Subjects {
			if _, ok := r.SubjectHours[subject]; !ok {
				return nil, invalid("students[%d]: no hours for subject %q", i, subject)
			}
		}
		for subject := range r.SubjectHours {
			if !slices.Contains(r.Subjects, subject) {
				return nil, invalid("students[%d]: hours given for unselected subject %q", i, subject)
			}
		}

		st := &model.EnrolmentStudent{
			StudentName:    r.StudentName,
			YearLevel:      r.YearLevel,
			School:         r.School,
			Subjects:       r.Subjects,
			SubjectHours:   r.SubjectHours,
			PreferredDays:  r.PreferredDays,
			PreferredTimes: r.PreferredTimes,
		}
		st.WeeklyHours = st.TotalHours()
		students = append(students, st)
	}

	return students, nil
}
