package dispatch

import (
	"context"

	"github.com/m3rciful/leadbot/core/chat"
	"github.com/m3rciful/leadbot/core/middleware"
	"github.com/m3rciful/leadbot/core/router"
	"github.com/m3rciful/leadbot/internal/leads/compose"
	"github.com/m3rciful/leadbot/internal/leads/domain"
)

func (d *Dispatcher) buildCommands() *router.Registry {
	r := router.NewRegistry()
	r.Register("help", router.Command{
		Handler:     d.help,
		Description: "แสดงคำสั่งทั้งหมด",
		Aliases:     []string{"ช่วยเหลือ", "คำสั่ง"},
	})
	r.Register("stats", router.Command{
		Handler:     d.stats,
		Description: "สถิติลูกค้า",
		Aliases:     []string{"สถิติ"},
	})
	groupOnly := middleware.GroupOnly(middleware.GroupOptions{OnReject: d.fallback})
	r.Register("group", router.Command{
		Handler:     groupOnly(d.groupInfo),
		Description: "ดูข้อมูลกลุ่ม",
		GroupOnly:   true,
		Aliases:     []string{"กลุ่ม"},
	})
	return r
}

func (d *Dispatcher) help(ctx context.Context, _ chat.Event) error {
	d.reply(ctx, compose.Help(d.source(ctx)))
	return nil
}

func (d *Dispatcher) fallback(ctx context.Context, _ chat.Event) error {
	d.reply(ctx, compose.Fallback(d.source(ctx)))
	return nil
}

func (d *Dispatcher) stats(ctx context.Context, _ chat.Event) error {
	s, err := d.repo.Stats(ctx)
	if err != nil {
		return d.fail(ctx, compose.OpStats, domain.External("stats", err))
	}
	d.reply(ctx, compose.StatsText(s, d.source(ctx)))
	return nil
}

func (d *Dispatcher) groupInfo(ctx context.Context, ev chat.Event) error {
	g, err := d.lookup.GroupSummary(ctx, ev.Source.GroupID)
	if err != nil {
		return d.fail(ctx, compose.OpGroup, domain.External("group", err))
	}
	d.reply(ctx, compose.GroupInfo(ev.Source.GroupID, g))
	return nil
}
