package services

import (
	"context"
	"fmt"
	"log"

	"bakery_tracker/internal/models"
	"bakery_tracker/pkg/ticket"

	"github.com/google/uuid"
)

// Printer is anything that can put a ticket on paper.
type Printer interface {
	Print(ctx context.Context, t ticket.Ticket) error
}

// LogPrinter writes tickets to the process log when no print server is set.
type LogPrinter struct{}

func (LogPrinter) Print(ctx context.Context, t ticket.Ticket) error {
	log.Printf("Printing %s\n%s", t.Title, t.Render())
	return nil
}

type PrintService interface {
	PrintOrder(ctx context.Context, id uuid.UUID) (*ticket.Ticket, error)
}

type printService struct {
	orderService OrderService
	printer      Printer
}

func NewPrintService(orderService OrderService, printer Printer) PrintService {
	return &printService{orderService: orderService, printer: printer}
}

func (s *printService) PrintOrder(ctx context.Context, id uuid.UUID) (*ticket.Ticket, error) {
	order, err := s.orderService.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	t := OrderTicket(order)
	if err := s.printer.Print(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to print order #%d: %w", order.Sequence, err)
	}
	return &t, nil
}

// OrderTicket lays an order out as a receipt.
func OrderTicket(order *models.Order) ticket.Ticket {
	t := ticket.Ticket{
		Title:  fmt.Sprintf("ORDEN #%d", order.Sequence),
		Header: []string{"Cliente: " + order.CustomerName, "Fecha: " + order.DisplayDate},
	}
	if order.Note != "" {
		t.Header = append(t.Header, "Nota: "+order.Note)
	}
	for _, item := range order.Items {
		t.Lines = append(t.Lines, ticket.Line{
			Quantity: item.Quantity,
			Name:     item.ProductName,
			Amount:   "Q" + item.Subtotal().StringFixed(2),
		})
	}

	t.Totals = append(t.Totals, ticket.Total{Label: "TOTAL", Amount: "Q" + order.TotalAmount.StringFixed(2)})
	switch order.PaymentState {
	case models.PaymentPartial:
		t.Totals = append(t.Totals,
			ticket.Total{Label: "ANTICIPO", Amount: "-Q" + order.AmountPaid.StringFixed(2)},
			ticket.Total{Label: "RESTA", Amount: "Q" + order.Balance().StringFixed(2)},
		)
	case models.PaymentUnpaid:
		t.Totals = append(t.Totals, ticket.Total{Label: "PENDIENTE", Amount: "Q" + order.TotalAmount.StringFixed(2)})
	}
	t.Footer = []string{order.PaymentState.Label()}
	return t
}
