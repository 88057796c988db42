package gateway

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"

	"github.com/cafepos/terminal/internal/rpc"
)

// Kind is the closed set of failures the gateway reports.
type Kind int

const (
	KindUnknown Kind = iota
	KindTransport
	KindNotCreated

	// Preconditions
	KindOperatorRequired
	KindSessionRequired
	KindItemsRequired

	// Conflicts
	KindOrderNotPending
	KindOrderNotCompleted
	KindItemAlreadyCancelled
	KindItemNotFound
	KindProductNotFound
	KindInsufficientStock

	// Validation
	KindInvalidCredentials
	KindInvalidPaymentMethod
	KindInvalidCancelQty
	KindInvalidReason
)

// Class groups kinds by how the caller must react.
type Class int

const (
	// ClassUnknown failures are shown with the raw or fallback message.
	ClassUnknown Class = iota
	// ClassTransport failures never reached the backend logic.
	ClassTransport
	// ClassPrecondition failures are fixed by the operator before retrying.
	ClassPrecondition
	// ClassConflict failures mean the backend state moved on; the caller
	// refreshes its list and never repeats the mutation.
	ClassConflict
	// ClassValidation failures block the action until the input changes.
	ClassValidation
)

func (c Class) String() string {
	switch c {
	case ClassTransport:
		return "transport"
	case ClassPrecondition:
		return "precondition"
	case ClassConflict:
		return "conflict"
	case ClassValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Class returns the class k belongs to.
func (k Kind) Class() Class {
	switch k {
	case KindTransport:
		return ClassTransport
	case KindOperatorRequired, KindSessionRequired, KindItemsRequired:
		return ClassPrecondition
	case KindOrderNotPending, KindOrderNotCompleted, KindItemAlreadyCancelled,
		KindItemNotFound, KindProductNotFound, KindInsufficientStock:
		return ClassConflict
	case KindInvalidCredentials, KindInvalidPaymentMethod, KindInvalidCancelQty, KindInvalidReason:
		return ClassValidation
	default:
		return ClassUnknown
	}
}

// messages are the texts shown to the operator.
var messages = map[Kind]string{
	KindNotCreated:           "Commande non creee",
	KindOperatorRequired:     "Utilisateur manquant",
	KindSessionRequired:      "Session requise pour confirmer la commande",
	KindItemsRequired:        "Aucun article selectionne",
	KindOrderNotPending:      "Commande introuvable ou deja cloturee",
	KindOrderNotCompleted:    "Commande non validee",
	KindItemAlreadyCancelled: "Article deja annule",
	KindItemNotFound:         "Article introuvable",
	KindProductNotFound:      "Produit introuvable dans la base",
	KindInsufficientStock:    "Stock insuffisant pour cette commande",
	KindInvalidCredentials:   "PIN incorrect ou utilisateur inactif",
	KindInvalidPaymentMethod: "Mode de paiement invalide",
	KindInvalidCancelQty:     "Quantite invalide",
	KindInvalidReason:        "Raison invalide",
}

// backendCodes maps the codes raised by the procedures to kinds. The code
// is searched for inside the error message; longer codes come first so
// "order_not_found_or_not_pending" is not shadowed.
var backendCodes = []struct {
	code string
	kind Kind
}{
	{"order_not_found_or_not_pending", KindOrderNotPending},
	{"order_not_pending", KindOrderNotPending},
	{"order_not_completed", KindOrderNotCompleted},
	{"item_already_cancelled", KindItemAlreadyCancelled},
	{"insufficient_stock", KindInsufficientStock},
	{"invalid_payment_method", KindInvalidPaymentMethod},
	{"invalid_cancel_qty", KindInvalidCancelQty},
	{"product_not_found", KindProductNotFound},
	{"session_required", KindSessionRequired},
	{"items_required", KindItemsRequired},
	{"item_not_found", KindItemNotFound},
	{"invalid_reason", KindInvalidReason},
	{"user_required", KindOperatorRequired},
}

// Error is the only error type returned by Gateway methods.
type Error struct {
	Kind Kind
	// Code is the backend code that produced the error, empty for local
	// checks and transport failures.
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Class is a shorthand for e.Kind.Class().
func (e *Error) Class() Class { return e.Kind.Class() }

// KindOf returns the kind of a gateway error, or KindUnknown.
func KindOf(err error) Kind {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Kind
	}
	return KindUnknown
}

// ClassOf returns the class of a gateway error. Errors that did not come
// from the gateway are ClassUnknown.
func ClassOf(err error) Class {
	return KindOf(err).Class()
}

// IsConflict reports whether err means the backend state changed under us.
func IsConflict(err error) bool {
	return ClassOf(err) == ClassConflict
}

// NewError builds an error of the given kind with its operator message.
func NewError(kind Kind) *Error {
	return &Error{Kind: kind, Message: messages[kind]}
}

// classify turns whatever a Caller returned into an *Error.
func classify(fn string, err error) *Error {
	var rpcErr *rpc.Error
	if !errors.As(err, &rpcErr) {
		return &Error{
			Kind:    KindTransport,
			Message: "Erreur RPC " + fn,
			Cause:   err,
		}
	}

	for _, c := range backendCodes {
		if strings.Contains(rpcErr.Message, c.code) {
			return &Error{Kind: c.kind, Code: c.code, Message: messages[c.kind], Cause: err}
		}
	}

	msg := rpcErr.Message
	if msg == "" {
		msg = "Erreur RPC " + fn
	}
	return &Error{Kind: KindUnknown, Message: msg, Cause: err}
}
