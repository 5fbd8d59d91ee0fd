package factory

import "github.com/Shivanand-hulikatti/event-factory/internal/chain"

// Entry points of the factory contract.
var (
	MethodCreateEvent    = chain.Method{Contract: chain.KindFactory, Name: "create_event", Payable: true}
	MethodOnEventCreated = chain.Method{Contract: chain.KindFactory, Name: "on_event_created"}
	MethodGetEventNames  = chain.Method{Contract: chain.KindFactory, Name: "get_event_names"}
	MethodGetEntry       = chain.Method{Contract: chain.KindFactory, Name: "get_entry"}
)
