// Package accounts implements the account and credential lifecycle for a
// session-based web application: registration, email activation, password
// authentication, and password reset by token.
//
// Account lifecycle:
//   - Accounts carry an AccountStatus field that is persisted via Bun.
//     Statuses cover pending, active, suspended, and archived flows; the
//     activation sub-machine moves an account from pending to active once the
//     owner proves control of the registered mailbox.
//   - AccountStateMachine centralizes the transition graph, timestamp
//     handling, hooks, and persistence. Invoke Transition with ActorRef
//     metadata whenever an admin moves an account.
//
// Tokens:
//   - Activation and reset tokens are issued by TokenIssuer from a
//     cryptographically secure source, are purpose scoped, time limited, and
//     single use. Consumption is a single conditional UPDATE at the store so
//     two concurrent presenters of the same token resolve to exactly one
//     success.
//
// Collaborator boundaries:
//   - Notifier delivers out-of-band messages best-effort; delivery failures
//     are logged and never roll back the mutation that triggered them.
//   - SessionBinder turns a verified identity into an opaque session handle.
//     A JWT-backed binder ships as the default; any session store can
//     implement the contract.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by the authenticator,
//     the command handlers, and the state machine. Sinks run best-effort
//     (errors are logged) so you can forward to a database or queue without
//     blocking authentication.
package accounts
