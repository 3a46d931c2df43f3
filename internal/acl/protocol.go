package acl

// transitionKey is the (current state, incoming performative) pair a
// protocol table is keyed on, grounded on the table-driven policy
// evaluation style of peakyragnar-subluminal's pkg/policy.
type transitionKey struct {
	state        ConversationState
	performative Performative
}

// fipaRequestTable implements spec.md §4.H's fipa-request transitions.
var fipaRequestTable = map[transitionKey]ConversationState{
	{StateInitiated, Request}: StatePending,
	{StatePending, Agree}:     StateAgreed,
	{StatePending, Refuse}:    StateRefused,
	{StateAgreed, Inform}:     StateCompleted,
	{StatePending, Inform}:    StateCompleted,
	{StateInitiated, Cancel}:  StateCancelled,
	{StatePending, Cancel}:    StateCancelled,
	{StateAgreed, Cancel}:     StateCancelled,
}

// fipaQueryTable implements the analogous fipa-query protocol: a query-if
// or query-ref opens the conversation, refuse/inform close it.
var fipaQueryTable = map[transitionKey]ConversationState{
	{StateInitiated, QueryIf}:  StatePending,
	{StateInitiated, QueryRef}: StatePending,
	{StatePending, Inform}:     StateCompleted,
	{StatePending, Refuse}:     StateRefused,
	{StateInitiated, Cancel}:   StateCancelled,
	{StatePending, Cancel}:     StateCancelled,
}

// fipaContractNetTable implements the fipa-contract-net protocol: a cfp
// solicits propose/refuse, propose is accepted/rejected via agree/refuse,
// and an inform closes it out.
var fipaContractNetTable = map[transitionKey]ConversationState{
	{StateInitiated, CFP}:      StatePending,
	{StatePending, Propose}:    StatePending,
	{StatePending, Refuse}:     StateRefused,
	{StatePending, Agree}:      StateAgreed,
	{StateAgreed, Inform}:      StateCompleted,
	{StatePending, Inform}:     StateCompleted,
	{StateInitiated, Cancel}:   StateCancelled,
	{StatePending, Cancel}:     StateCancelled,
	{StateAgreed, Cancel}:      StateCancelled,
}

const (
	ProtocolFIPARequest     = "fipa-request"
	ProtocolFIPAQuery       = "fipa-query"
	ProtocolFIPAContractNet = "fipa-contract-net"
)

func tableFor(protocol string) map[transitionKey]ConversationState {
	switch protocol {
	case ProtocolFIPAQuery:
		return fipaQueryTable
	case ProtocolFIPAContractNet:
		return fipaContractNetTable
	default:
		return fipaRequestTable
	}
}

// inferProtocol picks the protocol table a fresh conversation should use
// from its opening performative, since callers don't name a protocol
// explicitly over the wire (spec.md's tool arguments carry only a
// performative and content).
func inferProtocol(p Performative) string {
	switch p {
	case QueryIf, QueryRef:
		return ProtocolFIPAQuery
	case CFP:
		return ProtocolFIPAContractNet
	default:
		return ProtocolFIPARequest
	}
}

// advance applies an incoming performative to a conversation's current
// state, idempotently: once a state is terminal (spec.md §8's
// "Conversation closure" property) no further message moves it elsewhere,
// and an unrecognized (state, performative) pair is a no-op leaving the
// state unchanged.
func advance(state ConversationState, protocol string, p Performative) ConversationState {
	if state.terminal() {
		return state
	}
	next, ok := tableFor(protocol)[transitionKey{state, p}]
	if !ok {
		return state
	}
	return next
}
