package hospitality

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/nadzzz/signalbox/internal/command"
)

// cartLine is one position in a session's cart.
type cartLine struct {
	Product  string  `json:"product"`
	Quantity int     `json:"quantity"`
	Size     string  `json:"size,omitempty"`
	Price    float64 `json:"price"`
}

// state is the in-memory world the demo handlers act on: one cart per
// session and a shared table board.
type state struct {
	mu     sync.Mutex
	carts  map[string][]cartLine
	tables map[int]string
}

func newState() *state {
	return &state{
		carts:  make(map[string][]cartLine),
		tables: make(map[int]string),
	}
}

func (s *Service) addItem(ctx context.Context, inv command.Invocation) (command.Outcome, error) {
	product := inv.Params["product"]
	if product == "" {
		return command.Outcome{}, fmt.Errorf("no product to add")
	}

	quantity := 1
	if q := inv.Params["quantity"]; q != "" {
		n, err := strconv.Atoi(q)
		if err != nil {
			return command.Outcome{}, fmt.Errorf("bad quantity %q", q)
		}
		quantity = n
	}

	item, ok := s.catalog.Lookup(product)
	if !ok {
		return command.Outcome{}, fmt.Errorf("product %q is not on the menu", product)
	}

	line := cartLine{
		Product:  item.Name,
		Quantity: quantity,
		Size:     inv.Params["size"],
		Price:    item.Price,
	}

	s.state.mu.Lock()
	s.state.carts[inv.SessionID] = append(s.state.carts[inv.SessionID], line)
	count := len(s.state.carts[inv.SessionID])
	s.state.mu.Unlock()

	return command.Outcome{
		Action: "add_to_cart",
		Data: map[string]any{
			"product":    line.Product,
			"quantity":   line.Quantity,
			"size":       line.Size,
			"unit_price": line.Price,
			"cart_size":  count,
		},
	}, nil
}

func (s *Service) removeItem(ctx context.Context, inv command.Invocation) (command.Outcome, error) {
	product := inv.Params["product"]
	if product == "" {
		return command.Outcome{}, fmt.Errorf("no product to remove")
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	lines := s.state.carts[inv.SessionID]
	for i := len(lines) - 1; i >= 0; i-- {
		if lines[i].Product != product {
			continue
		}
		s.state.carts[inv.SessionID] = append(lines[:i], lines[i+1:]...)
		return command.Outcome{
			Action: "remove_from_cart",
			Data: map[string]any{
				"product":   product,
				"cart_size": len(s.state.carts[inv.SessionID]),
			},
		}, nil
	}
	return command.Outcome{}, fmt.Errorf("%s is not in the cart", product)
}

func (s *Service) modifyItem(ctx context.Context, inv command.Invocation) (command.Outcome, error) {
	product := inv.Params["product"]
	size := inv.Params["size"]
	if product == "" || size == "" {
		return command.Outcome{}, fmt.Errorf("need a product and a size to change")
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	lines := s.state.carts[inv.SessionID]
	for i := len(lines) - 1; i >= 0; i-- {
		if lines[i].Product != product {
			continue
		}
		lines[i].Size = size
		return command.Outcome{
			Action: "update_cart_item",
			Data: map[string]any{
				"product": product,
				"size":    size,
			},
		}, nil
	}
	return command.Outcome{}, fmt.Errorf("%s is not in the cart", product)
}

func (s *Service) showCart(ctx context.Context, inv command.Invocation) (command.Outcome, error) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	lines := s.state.carts[inv.SessionID]
	items := make([]cartLine, len(lines))
	copy(items, lines)

	return command.Outcome{
		Action: "show_cart",
		Data: map[string]any{
			"items": items,
			"total": cartTotal(lines),
		},
	}, nil
}

func (s *Service) checkout(ctx context.Context, inv command.Invocation) (command.Outcome, error) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	lines := s.state.carts[inv.SessionID]
	if len(lines) == 0 {
		return command.Outcome{}, fmt.Errorf("the cart is empty")
	}

	total := cartTotal(lines)
	delete(s.state.carts, inv.SessionID)

	return command.Outcome{
		Action: "start_checkout",
		Data: map[string]any{
			"items":    len(lines),
			"total":    total,
			"currency": "CHF",
		},
	}, nil
}

func (s *Service) navigate(ctx context.Context, inv command.Invocation) (command.Outcome, error) {
	page := inv.Params["page"]
	if page == "" {
		return command.Outcome{}, fmt.Errorf("no destination page")
	}
	return command.Outcome{
		Action: "navigate",
		Data:   map[string]any{"page": page},
	}, nil
}

func (s *Service) setTableStatus(ctx context.Context, inv command.Invocation) (command.Outcome, error) {
	table, err := strconv.Atoi(inv.Params["table"])
	if err != nil {
		return command.Outcome{}, fmt.Errorf("bad table number %q", inv.Params["table"])
	}
	status := inv.Params["state"]
	if status == "" {
		return command.Outcome{}, fmt.Errorf("no table status given")
	}

	s.state.mu.Lock()
	s.state.tables[table] = status
	s.state.mu.Unlock()

	return command.Outcome{
		Action: "set_table_status",
		Data: map[string]any{
			"table": table,
			"state": status,
		},
	}, nil
}

func (s *Service) help(ctx context.Context, inv command.Invocation) (command.Outcome, error) {
	names := make([]string, 0, len(s.Definitions()))
	for _, def := range s.Definitions() {
		names = append(names, def.Name)
	}
	return command.Outcome{
		Action: "show_help",
		Data:   map[string]any{"commands": names},
	}, nil
}

func cartTotal(lines []cartLine) float64 {
	var total float64
	for _, l := range lines {
		total += float64(l.Quantity) * l.Price
	}
	return total
}
