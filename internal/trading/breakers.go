package trading

import (
	"fmt"
	"time"

	"github.com/jsj9346/screener/internal/domain"
	"github.com/jsj9346/screener/internal/repository"
)

// breakerDailyLoss and breakerConsecutiveLoss are the breaker names
// recorded to circuit_breaker_logs. breakerManualHalt is tripped only by
// an operator action, never automatically, so the engine only checks it.
const (
	breakerDailyLoss       = "daily_loss_limit"
	breakerConsecutiveLoss = "consecutive_loss_limit"
	breakerManualHalt      = "manual_halt"
)

// checkCircuitBreakers evaluates the automatic breakers and logs a trip
// for any newly-crossed threshold, then reports whether trading is halted
// for region right now (including a pre-existing unresolved trip or the
// manual halt).
func checkCircuitBreakers(
	trades *repository.TradeRepository,
	breakers *repository.CircuitBreakerRepository,
	limits domain.RiskLimits,
	region domain.Region,
	now time.Time,
) (halted bool, reason string, err error) {
	if tripped, err := breakers.IsTripped(breakerManualHalt); err != nil {
		return false, "", err
	} else if tripped {
		return true, "trading halted by manual action", nil
	}

	closedToday, err := trades.ClosedOn(region, now)
	if err != nil {
		return false, "", err
	}
	var dailyLossKRW float64
	for _, t := range closedToday {
		pl := t.RealizedPL().Float()
		if pl < 0 {
			dailyLossKRW += -pl
		}
	}
	if dailyLossKRW > limits.DailyLossLimitKRW {
		if err := breakers.Record(domain.CircuitBreakerLog{
			TriggeredAt: now, Breaker: breakerDailyLoss,
			TriggerValue: dailyLossKRW, LimitValue: limits.DailyLossLimitKRW,
			Reason: fmt.Sprintf("daily realized loss %.0f exceeds limit %.0f", dailyLossKRW, limits.DailyLossLimitKRW),
		}); err != nil {
			return false, "", err
		}
		return true, "daily loss limit breached", nil
	}

	recent, err := trades.RecentClosed(region, limits.ConsecutiveLossLimit)
	if err != nil {
		return false, "", err
	}
	if limits.ConsecutiveLossLimit > 0 && len(recent) == limits.ConsecutiveLossLimit {
		allLosses := true
		for _, t := range recent {
			if t.RealizedPL().Float() >= 0 {
				allLosses = false
				break
			}
		}
		if allLosses {
			if err := breakers.Record(domain.CircuitBreakerLog{
				TriggeredAt: now, Breaker: breakerConsecutiveLoss,
				TriggerValue: float64(len(recent)), LimitValue: float64(limits.ConsecutiveLossLimit),
				Reason: fmt.Sprintf("%d consecutive losing trades", len(recent)),
			}); err != nil {
				return false, "", err
			}
			return true, "consecutive loss limit breached", nil
		}
	}

	if tripped, err := breakers.IsTripped(breakerDailyLoss); err != nil {
		return false, "", err
	} else if tripped {
		return true, "daily loss limit still unresolved", nil
	}
	if tripped, err := breakers.IsTripped(breakerConsecutiveLoss); err != nil {
		return false, "", err
	} else if tripped {
		return true, "consecutive loss limit still unresolved", nil
	}

	return false, "", nil
}
