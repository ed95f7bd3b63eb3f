package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusConfirmed       OrderStatus = "confirmed"
	OrderStatusPreparing       OrderStatus = "preparing"
	OrderStatusReady           OrderStatus = "ready"
	OrderStatusOnTheWay        OrderStatus = "on_the_way"
	OrderStatusWaitingCustomer OrderStatus = "waiting_customer"
	OrderStatusDelivered       OrderStatus = "delivered"
	OrderStatusRejected        OrderStatus = "rejected"
	OrderStatusTimeout         OrderStatus = "timeout"
)

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusRejected || s == OrderStatusTimeout
}

// String representation (for logging)
func (s OrderStatus) String() string {
	return string(s)
}

// next hop in the happy path; rejected/timeout are reachable from any
// non-terminal state and handled separately in CanTransitionTo.
var orderStatusNext = map[OrderStatus][]OrderStatus{
	OrderStatusPending:         {OrderStatusConfirmed},
	OrderStatusConfirmed:       {OrderStatusPreparing},
	OrderStatusPreparing:       {OrderStatusReady},
	OrderStatusReady:           {OrderStatusOnTheWay, OrderStatusWaitingCustomer},
	OrderStatusOnTheWay:        {OrderStatusDelivered},
	OrderStatusWaitingCustomer: {OrderStatusDelivered},
}

func CanTransitionTo(from, to OrderStatus) bool {
	if from.IsTerminal() {
		return false
	}
	if to == OrderStatusRejected || to == OrderStatusTimeout {
		return true
	}
	for _, n := range orderStatusNext[from] {
		if n == to {
			return true
		}
	}
	return false
}

type OrderItem struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    float64         `json:"price"`
	Options  SelectedOptions `json:"options"`
}

// RestaurantSummary is the denormalized restaurant info embedded in an order.
type RestaurantSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Order as the client sees it: append-only except for status refreshes.
type Order struct {
	ID           string                    `json:"id"`
	UserID       string                    `json:"user_id"`
	CartPrice    float64                   `json:"cart_price"`
	Discount     float64                   `json:"discount"`
	VAT          float64                   `json:"vat"`
	DeliveryCost float64                   `json:"delivery_cost"`
	TotalPrice   float64                   `json:"total_price"`
	Status       OrderStatus               `json:"status"`
	StatusTimes  map[OrderStatus]time.Time `json:"status_times,omitempty"`
	Restaurant   RestaurantSummary         `json:"restaurant"`
	Items        []OrderItem               `json:"items"`
	CreatedAt    time.Time                 `json:"created_at"`
	UpdatedAt    time.Time                 `json:"updated_at"`
}

func (o Order) IsActive() bool {
	return !o.Status.IsTerminal()
}
