package proto

import (
	"math"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/booktrade/core/dto"
	"google.golang.org/protobuf/types/known/structpb"
)

var ErrMalformedMessage = errors.New("malformed message")

// DeliveryToPb encodes env addressed to the single receiver to.
func DeliveryToPb(to dto.AID, env dto.Envelope) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"to":              string(to),
		"performative":    string(env.Performative),
		"conversation_id": env.ConversationID,
		"correlation_id":  env.CorrelationID,
		"sender":          string(env.Sender),
		"receivers":       aidsToList(env.Receivers),
		"content":         env.Content,
	})
}

// DeliveryFromPb decodes a delivery. The performative and both identities
// must be present.
func DeliveryFromPb(pb *structpb.Struct) (dto.AID, dto.Envelope, error) {
	to := dto.AID(stringField(pb, "to"))
	env := dto.Envelope{
		Performative:   dto.Performative(stringField(pb, "performative")),
		ConversationID: stringField(pb, "conversation_id"),
		CorrelationID:  stringField(pb, "correlation_id"),
		Sender:         dto.AID(stringField(pb, "sender")),
		Receivers:      aidsFromList(pb.GetFields()["receivers"]),
		Content:        stringField(pb, "content"),
	}

	switch {
	case to == "":
		return "", dto.Envelope{}, errors.Wrap(ErrMalformedMessage, "delivery without receiver")
	case env.Sender == "":
		return "", dto.Envelope{}, errors.Wrap(ErrMalformedMessage, "delivery without sender")
	case !env.Performative.Valid():
		return "", dto.Envelope{}, errors.Wrapf(ErrMalformedMessage, "unknown performative %q", env.Performative)
	}

	return to, env, nil
}

func ItemToPb(seller dto.AID, title string, price int) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"seller": string(seller),
		"title":  title,
		"price":  price,
	})
}

// ItemFromPb decodes an AddItem request. Prices must be whole numbers.
func ItemFromPb(pb *structpb.Struct) (dto.AID, string, int, error) {
	seller := dto.AID(stringField(pb, "seller"))
	if seller == "" {
		return "", "", 0, errors.Wrap(ErrMalformedMessage, "item without seller")
	}

	v, ok := pb.GetFields()["price"]
	if !ok {
		return "", "", 0, errors.Wrap(ErrMalformedMessage, "item without price")
	}
	price := v.GetNumberValue()
	if price != math.Trunc(price) || price > math.MaxInt32 || price < math.MinInt32 {
		return "", "", 0, errors.Wrapf(ErrMalformedMessage, "price %v is not an integer", price)
	}

	return seller, stringField(pb, "title"), int(price), nil
}

func RegistrationToPb(id dto.AID, capability string) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"aid":        string(id),
		"capability": capability,
	})
}

func RegistrationFromPb(pb *structpb.Struct) (dto.AID, string, error) {
	id := dto.AID(stringField(pb, "aid"))
	if id == "" {
		return "", "", errors.Wrap(ErrMalformedMessage, "registration without actor")
	}

	return id, stringField(pb, "capability"), nil
}

func QueryToPb(capability string) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{"capability": capability})
}

func QueryFromPb(pb *structpb.Struct) string {
	return stringField(pb, "capability")
}

func AIDsToPb(ids []dto.AID) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{"aids": aidsToList(ids)})
}

func AIDsFromPb(pb *structpb.Struct) []dto.AID {
	return aidsFromList(pb.GetFields()["aids"])
}

func stringField(pb *structpb.Struct, name string) string {
	return pb.GetFields()[name].GetStringValue()
}

func aidsToList(ids []dto.AID) []interface{} {
	list := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		list = append(list, string(id))
	}
	return list
}

func aidsFromList(v *structpb.Value) []dto.AID {
	values := v.GetListValue().GetValues()
	if len(values) == 0 {
		return nil
	}

	ids := make([]dto.AID, 0, len(values))
	for _, item := range values {
		ids = append(ids, dto.AID(item.GetStringValue()))
	}
	return ids
}
