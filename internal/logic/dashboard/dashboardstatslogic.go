package dashboard

import (
	"context"
	"errors"
	"time"

	"github.com/sentryai/sentry/internal/analysis"
	"github.com/sentryai/sentry/internal/apperr"
	"github.com/sentryai/sentry/internal/conversation"
	"github.com/sentryai/sentry/internal/db"
	"github.com/sentryai/sentry/internal/logging"
	"github.com/sentryai/sentry/internal/middleware"
	"github.com/sentryai/sentry/internal/svc"
	"github.com/sentryai/sentry/internal/types"
)

const (
	activityDays = 7
	recentChats  = 4
)

// Insight types.
const (
	InsightNeutral = "neutral"
	InsightSuccess = "success"
)

const defaultInsight = "Comece uma nova análise para receber dicas personalizadas."

type DashboardStatsLogic struct {
	logging.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
	now    func() time.Time
}

// User dashboard
func NewDashboardStatsLogic(ctx context.Context, svcCtx *svc.ServiceContext) *DashboardStatsLogic {
	return &DashboardStatsLogic{
		Logger: logging.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
		now:    time.Now,
	}
}

// DashboardStats summarizes a user's activity: totals, a day-by-day count of
// questions and contract submissions for the last week, the most recently
// active chats and a tip generated from the latest question. A failed tip
// falls back to a fixed message.
func (l *DashboardStatsLogic) DashboardStats(req *types.DashboardStatsRequest) (*types.DashboardStatsResponse, error) {
	p, err := middleware.RequirePrincipal(l.ctx)
	if err != nil {
		return nil, err
	}
	userID := p.UserID
	if req.UserId != "" {
		if !p.CanAccess(req.UserId) {
			return nil, apperr.Forbidden("access denied")
		}
		userID = req.UserId
	}
	user, err := l.svcCtx.DB.GetUser(l.ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, l.persistence(err)
	}

	chats, err := l.svcCtx.DB.ListChats(l.ctx, userID)
	if err != nil {
		return nil, l.persistence(err)
	}
	contracts, err := l.svcCtx.DB.ListContracts(l.ctx, userID)
	if err != nil {
		return nil, l.persistence(err)
	}
	sent, err := l.svcCtx.DB.CountUserMessages(l.ctx, userID)
	if err != nil {
		return nil, l.persistence(err)
	}
	avg, err := l.svcCtx.DB.AverageScore(l.ctx, userID)
	if err != nil {
		return nil, l.persistence(err)
	}

	days, first := newWeek(l.now())
	times, err := l.svcCtx.DB.UserMessageTimes(l.ctx, userID, first.UnixMicro())
	if err != nil {
		return nil, l.persistence(err)
	}
	for _, at := range times {
		if d := days.at(at); d != nil {
			d.Consultations++
		}
	}

	resp := &types.DashboardStatsResponse{
		Kpis: types.DashboardKpis{
			ActiveCases:   len(chats),
			MessagesSent:  sent,
			AverageRating: avg,
		},
		Recent: []types.DashboardChat{},
	}
	for _, c := range contracts {
		if d := days.at(c.CreatedAt); d != nil {
			d.Analyses++
		}
		if c.Status != db.ContractDone {
			continue
		}
		resp.Kpis.ContractsAnalyzed++
		if report, err := analysis.DecodeReport(c.Result); err == nil && report.OverallRisk == analysis.RiskHigh {
			resp.Kpis.RisksFlagged++
		}
	}
	resp.Activity = days.list

	for _, c := range chats[:min(len(chats), recentChats)] {
		resp.Recent = append(resp.Recent, types.DashboardChat{
			Id:        c.ID,
			Name:      c.Name,
			UpdatedAt: time.UnixMicro(c.UpdatedAt).UTC().Format(time.RFC3339),
		})
	}

	resp.Insight = l.insight(user)
	return resp, nil
}

func (l *DashboardStatsLogic) insight(user *db.User) types.DashboardInsight {
	fallback := types.DashboardInsight{Type: InsightNeutral, Text: defaultInsight}
	last, err := l.svcCtx.DB.LatestUserMessage(l.ctx, user.ID)
	if errors.Is(err, db.ErrNotFound) {
		return fallback
	}
	if err != nil {
		l.Errorf("Failed to load latest message for user %s: %v", user.ID, err)
		return fallback
	}

	ctx, cancel := context.WithTimeout(l.ctx, l.svcCtx.Config.Chat.TitleTimeout)
	defer cancel()
	tip, err := conversation.Insight(ctx, l.svcCtx.Registry, l.svcCtx.Config.Chat.TitleModel, user.Name, last.Content)
	if err != nil {
		l.Infof("Dashboard insight unavailable for user %s: %v", user.ID, err)
		return fallback
	}
	return types.DashboardInsight{Type: InsightSuccess, Text: tip}
}

func (l *DashboardStatsLogic) persistence(err error) error {
	l.Errorf("Failed to build dashboard: %v", err)
	return apperr.Wrap(apperr.KindPersistence, err, "")
}

// week buckets timestamps into the last activityDays local calendar days,
// today last.
type week struct {
	list  []types.DashboardDay
	index map[string]int
	loc   *time.Location
}

func newWeek(now time.Time) (*week, time.Time) {
	y, m, d := now.Date()
	first := time.Date(y, m, d-(activityDays-1), 0, 0, 0, 0, now.Location())
	w := &week{index: make(map[string]int, activityDays), loc: now.Location()}
	for i := 0; i < activityDays; i++ {
		day := time.Date(y, m, d-(activityDays-1)+i, 0, 0, 0, 0, now.Location())
		w.index[day.Format(time.DateOnly)] = i
		w.list = append(w.list, types.DashboardDay{Day: day.Format("02/01")})
	}
	return w, first
}

// at returns the bucket for a Unix-microsecond timestamp, or nil when it
// falls outside the week.
func (w *week) at(us int64) *types.DashboardDay {
	i, ok := w.index[time.UnixMicro(us).In(w.loc).Format(time.DateOnly)]
	if !ok {
		return nil
	}
	return &w.list[i]
}
