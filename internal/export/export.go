// Package export publishes the current fund directory to spreadsheet
// destinations for the content team.
package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/fundweb/fundsync/internal/domain"
)

// FundLister provides the current directory contents.
type FundLister interface {
	Funds() domain.FundSet
}

// SheetWriter writes the directory to a spreadsheet destination.
type SheetWriter interface {
	Write(ctx context.Context, funds domain.FundSet) error
}

// Service pushes the directory to a SheetWriter after each refresh.
type Service struct {
	funds  FundLister
	writer SheetWriter
}

// NewService creates a new export Service.
func NewService(funds FundLister, writer SheetWriter) *Service {
	return &Service{funds: funds, writer: writer}
}

// Export writes the current directory. Implements worker.AfterRefreshHook.
func (s *Service) Export(ctx context.Context) error {
	if err := s.writer.Write(ctx, s.funds.Funds()); err != nil {
		return fmt.Errorf("writing fund directory: %w", err)
	}
	return nil
}

var header = []any{
	"Rank", "Fund", "Manager", "Strategy", "Return target",
	"Mgmt fee %", "Perf fee %", "Min investment", "AUM", "Currency",
	"Tags", "Verified", "Updated",
}

// buildRows renders the directory as spreadsheet rows, header first.
func buildRows(funds domain.FundSet) [][]any {
	rows := make([][]any, 0, len(funds)+1)
	rows = append(rows, header)

	for _, f := range funds {
		rank := any(f.FinalRank)
		if f.FinalRank == domain.RankUnranked {
			rank = ""
		}
		aum := ""
		if f.AUM != nil {
			aum = f.AUM.String()
		}
		tags := strings.Join(lo.Map(f.Tags, func(t domain.Tag, _ int) string {
			return string(t)
		}), ", ")

		rows = append(rows, []any{
			rank, f.Name, f.Manager, f.Strategy, f.ReturnTarget,
			f.ManagementFee.String(), f.PerformanceFee.String(),
			f.MinInvestment.String(), aum, f.Currency,
			tags, f.IsVerified, f.UpdatedAt.UTC().Format("2006-01-02"),
		})
	}

	return rows
}
