package sender

import (
	"context"
	"fmt"

	"github.com/archestra-ai/reputation-bot/pkg/logger"
)

// Run waits for the bot to become healthy, then posts deliveries in order.
// It stops at the first delivery the bot rejects.
func Run(ctx context.Context, c *Client, deliveries ...Delivery) ([]Result, error) {
	log := c.logger

	log.Info(ctx, "waiting for bot", logger.String("url", c.cfg.BaseURL))
	if err := c.WaitHealthy(ctx); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(deliveries))
	for _, d := range deliveries {
		res, err := c.Send(ctx, d)
		if err != nil {
			return results, fmt.Errorf("send %s: %w", d.Event, err)
		}
		results = append(results, res)
		log.Info(ctx, "delivery accepted",
			logger.String("event", d.Event),
			logger.String("delivery", res.DeliveryID),
			logger.Int("status", res.StatusCode),
			logger.String("result", res.Response.Status),
			logger.String("outcome", res.Response.Outcome),
		)
	}
	return results, nil
}
