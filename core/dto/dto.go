// Package dto provides data transfer objects exchanged between trading actors.
//
// This package defines the message envelope, the performatives of the
// book-trade protocol and the notifications produced by buyers and sellers.
package dto

import (
	"strings"
	"time"
)

const (
	// ConversationTrade tags every message of a book-trade negotiation.
	ConversationTrade = "book-trade"
	// NotAvailable is the content of DECLINE and REJECT-BID replies.
	NotAvailable = "not-available"
	// CapabilityBookSelling is the directory capability advertised by sellers.
	CapabilityBookSelling = "book-selling"
)

// AID is an actor identity. Actors hosted by a networked node are named
// "name@host:port", purely local actors carry a bare name.
type AID string

// NewAID builds an identity for the actor name hosted at addr.
func NewAID(name, addr string) AID {
	if addr == "" {
		return AID(name)
	}
	return AID(name + "@" + addr)
}

// Name returns the local part of the identity.
func (a AID) Name() string {
	name, _, _ := strings.Cut(string(a), "@")
	return name
}

// Host returns the node address part of the identity, empty for local actors.
func (a AID) Host() string {
	_, host, _ := strings.Cut(string(a), "@")
	return host
}

func (a AID) String() string { return string(a) }

// Performative is the intent of a message within the protocol.
type Performative string

const (
	RequestForBids Performative = "REQUEST-FOR-BIDS"
	Bid            Performative = "BID"
	Decline        Performative = "DECLINE"
	AcceptBid      Performative = "ACCEPT-BID"
	Confirm        Performative = "CONFIRM"
	RejectBid      Performative = "REJECT-BID"
)

// Valid reports whether p is one of the protocol performatives.
func (p Performative) Valid() bool {
	switch p {
	case RequestForBids, Bid, Decline, AcceptBid, Confirm, RejectBid:
		return true
	}
	return false
}

// Envelope is the unit exchanged between actors.
type Envelope struct {
	Performative   Performative
	ConversationID string // Groups the messages of one exchange type
	CorrelationID  string // Minted by the requester, echoed by the reply
	Sender         AID
	Receivers      []AID
	Content        string
}

// Reply builds the answer to e sent by from. Conversation and correlation
// are copied so the requester can match it.
func (e Envelope) Reply(from AID, p Performative, content string) Envelope {
	return Envelope{
		Performative:   p,
		ConversationID: e.ConversationID,
		CorrelationID:  e.CorrelationID,
		Sender:         from,
		Receivers:      []AID{e.Sender},
		Content:        content,
	}
}

// Quote describes a price query a seller is about to answer.
type Quote struct {
	Title     string
	Buyer     AID
	Price     int
	Available bool
}

// Sale is emitted by a seller once an order removed the title from its catalogue.
type Sale struct {
	Title  string    `json:"title"`
	Price  int       `json:"price"`
	Seller AID       `json:"seller"`
	Buyer  AID       `json:"buyer"`
	SoldAt time.Time `json:"sold_at"`
}
