package lark

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCreator struct {
	reqs []*larkim.CreateMessageReq
	resp *larkim.CreateMessageResp
	err  error
}

func (f *fakeCreator) Create(ctx context.Context, req *larkim.CreateMessageReq, options ...larkcore.RequestOptionFunc) (*larkim.CreateMessageResp, error) {
	f.reqs = append(f.reqs, req)
	return f.resp, f.err
}

func okResponse() *larkim.CreateMessageResp {
	id := "om_123"
	return &larkim.CreateMessageResp{
		CodeError: larkcore.CodeError{Code: 0},
		Data:      &larkim.CreateMessageRespData{MessageId: &id},
	}
}

func TestMessenger_SendText(t *testing.T) {
	fake := &fakeCreator{resp: okResponse()}
	m := &Messenger{messages: fake, logger: zap.NewNop()}

	require.NoError(t, m.SendText(context.Background(), "oc_chat", `Quote "this"`+"\nplease"))
	require.Len(t, fake.reqs, 1)

	body := fake.reqs[0].Body
	assert.Equal(t, "oc_chat", *body.ReceiveId)
	assert.Equal(t, msgTypeText, *body.MsgType)

	var content map[string]string
	require.NoError(t, json.Unmarshal([]byte(*body.Content), &content))
	assert.Equal(t, "Quote \"this\"\nplease", content["text"])
}

func TestMessenger_SendCard(t *testing.T) {
	fake := &fakeCreator{resp: okResponse()}
	m := &Messenger{messages: fake, logger: zap.NewNop()}

	card := map[string]interface{}{"header": map[string]string{"template": "blue"}}
	require.NoError(t, m.SendCard(context.Background(), "oc_chat", card))
	assert.Equal(t, msgTypeInteractive, *fake.reqs[0].Body.MsgType)
	assert.JSONEq(t, `{"header":{"template":"blue"}}`, *fake.reqs[0].Body.Content)
}

func TestMessenger_Errors(t *testing.T) {
	t.Run("input validation", func(t *testing.T) {
		m := &Messenger{messages: &fakeCreator{resp: okResponse()}, logger: zap.NewNop()}
		assert.Error(t, m.SendText(context.Background(), "", "hi"))
		assert.Error(t, m.SendText(context.Background(), "oc_chat", ""))
		assert.Error(t, m.SendCard(context.Background(), "oc_chat", nil))
	})

	t.Run("transport error", func(t *testing.T) {
		m := &Messenger{messages: &fakeCreator{err: errors.New("dial tcp")}, logger: zap.NewNop()}
		assert.Error(t, m.SendText(context.Background(), "oc_chat", "hi"))
	})

	t.Run("api failure code", func(t *testing.T) {
		resp := &larkim.CreateMessageResp{CodeError: larkcore.CodeError{Code: 230002, Msg: "bot not in chat"}}
		m := &Messenger{messages: &fakeCreator{resp: resp}, logger: zap.NewNop()}
		err := m.SendText(context.Background(), "oc_chat", "hi")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "230002")
	})
}
