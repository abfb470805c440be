package service

import (
	"context"

	"github.com/ishpreet160/CertFlow/internal/dto"
	"github.com/ishpreet160/CertFlow/internal/identity"
	"github.com/ishpreet160/CertFlow/internal/lifecycle"
	"github.com/ishpreet160/CertFlow/internal/policy"
	"github.com/ishpreet160/CertFlow/internal/repository"
)

type DashboardService interface {
	// Stats counts certificates org-wide for admins and team-wide for managers.
	Stats(ctx context.Context, c identity.Claim) (*dto.StatsResponse, error)
}

type dashboardService struct {
	certs repository.CertificateRepository
	gate  *policy.Gate
}

func NewDashboardService(certs repository.CertificateRepository, gate *policy.Gate) DashboardService {
	return &dashboardService{certs: certs, gate: gate}
}

func (s *dashboardService) Stats(ctx context.Context, c identity.Claim) (*dto.StatsResponse, error) {
	if err := s.gate.Authorize(ctx, c, policy.ViewStats, nil); err != nil {
		return nil, err
	}
	counts, err := s.certs.CountByStatus(ctx, s.gate.Scope(ctx, c))
	if err != nil {
		return nil, err
	}
	resp := &dto.StatsResponse{
		PendingApprovals: counts[lifecycle.StatusPending],
		Approved:         counts[lifecycle.StatusApproved],
		Rejected:         counts[lifecycle.StatusRejected],
	}
	resp.TotalUploads = resp.PendingApprovals + resp.Approved + resp.Rejected
	return resp, nil
}
