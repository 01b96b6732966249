package grpcjson

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/encoding"
)

type payload struct {
	RequestID string `json:"requestId"`
	Count     int32  `json:"count"`
}

func TestCodecRoundTrip(t *testing.T) {
	codec := Codec{}

	data, err := codec.Marshal(&payload{RequestID: "req-1", Count: 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"requestId":"req-1","count":3}`, string(data))

	var out payload
	require.NoError(t, codec.Unmarshal(data, &out))
	assert.Equal(t, payload{RequestID: "req-1", Count: 3}, out)
}

func TestCodecEmptyAndInvalidPayloads(t *testing.T) {
	var out payload
	require.NoError(t, Codec{}.Unmarshal(nil, &out))
	assert.Equal(t, payload{}, out)

	err := Codec{}.Unmarshal([]byte(`{"count":"three"}`), &out)
	assert.ErrorContains(t, err, "grpcjson: unmarshal into *grpcjson.payload")

	_, err = Codec{}.Marshal(make(chan int))
	assert.ErrorContains(t, err, "grpcjson: marshal chan int")
}

func TestRegister(t *testing.T) {
	Register()
	Register()
	assert.Equal(t, Name, encoding.GetCodec(Name).Name())
}
