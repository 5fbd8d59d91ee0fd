package event

import (
	"github.com/Shivanand-hulikatti/event-factory/internal/chain"
	"github.com/Shivanand-hulikatti/event-factory/internal/model"
)

func method(name string, payable bool) chain.Method {
	return chain.Method{Contract: chain.KindEvent, Name: name, Payable: payable}
}

// Entry points of the event contract.
var (
	MethodInitialize     = method("initialize", true)
	MethodGetEvent       = method("get_event", false)
	MethodGetHost        = method("get_host", false)
	MethodGetCohosts     = method("get_cohosts", false)
	MethodGetDetails     = method("get_details", false)
	MethodGetTicketPrice = method("get_ticket_price", false)
	MethodGetMaxTickets  = method("get_max_tickets", false)
	MethodGetTicketsSold = method("get_tickets_sold", false)
	MethodGetBalance     = method("get_balance", false)
	MethodGetGuests      = method("get_guests", false)
	MethodHasTicket      = method("has_ticket", false)
	MethodAddCohost      = method("add_cohost", false)
	MethodRemoveCohost   = method("remove_cohost", false)
	MethodAddGuest       = method("add_guest", false)
	MethodRemoveGuest    = method("remove_guest", false)
	MethodSetDetails     = method("set_details", false)
	MethodSetMaxTickets  = method("set_max_tickets", false)
	MethodSetTicketPrice = method("set_ticket_price", false)
	MethodGoPublic       = method("go_public", false)
	MethodBuyTicket      = method("buy_ticket", true)
	MethodPayHosts       = method("pay_hosts", false)
)

// Init returns the instantiation hook that initializes a freshly deployed
// event with details. The deploying creator becomes the host.
func Init(details model.EventDetails) func(*chain.Context) error {
	return func(c *chain.Context) error {
		return Bind(c).Initialize(details)
	}
}
