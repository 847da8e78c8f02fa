package FirebaseHandlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/ItzBubschki/tr-backend/main/Handlers"
)

type fakeVerifier map[string]string

func (f fakeVerifier) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	uid, ok := f[idToken]
	if !ok {
		return nil, errors.New("invalid token")
	}
	return &auth.Token{UID: uid, Claims: map[string]interface{}{}}, nil
}

func newUsers() (*User, *User) {
	alice, bob := &User{Name: "Alice"}, &User{Name: "Bob"}
	alice.normalize()
	bob.normalize()
	return alice, bob
}

// consistent checks that both documents agree on the relationship.
func consistent(t *testing.T, a, b *User, aId, bId string) {
	t.Helper()
	if Handlers.ArrayContains(a.Friends, bId) != Handlers.ArrayContains(b.Friends, aId) {
		t.Errorf("friends disagree: %v / %v", a.Friends, b.Friends)
	}
	if Handlers.ArrayContains(a.FriendReqSent, bId) != Handlers.ArrayContains(b.FriendReqRec, aId) {
		t.Errorf("a->b request disagrees: %v / %v", a.FriendReqSent, b.FriendReqRec)
	}
	if Handlers.ArrayContains(b.FriendReqSent, aId) != Handlers.ArrayContains(a.FriendReqRec, bId) {
		t.Errorf("b->a request disagrees: %v / %v", b.FriendReqSent, a.FriendReqRec)
	}
	if Handlers.ArrayContains(a.Friends, bId) && (Handlers.ArrayContains(a.FriendReqSent, bId) || Handlers.ArrayContains(a.FriendReqRec, bId)) {
		t.Errorf("friends with a pending request: %+v", a)
	}
}

func TestSendThenAccept(t *testing.T) {
	alice, bob := newUsers()

	accepted, err := sendTransition(alice, bob, "alice", "bob")
	if err != nil || accepted {
		t.Fatalf("send = %v, %v", accepted, err)
	}
	consistent(t, alice, bob, "alice", "bob")
	if !Handlers.ArrayContains(bob.FriendReqRec, "alice") {
		t.Fatalf("bob did not receive the request: %+v", bob)
	}

	if _, err := sendTransition(alice, bob, "alice", "bob"); err != errAlreadySent {
		t.Errorf("second send err = %v", err)
	}

	if err := acceptTransition(bob, alice, "bob", "alice"); err != nil {
		t.Fatal(err)
	}
	consistent(t, alice, bob, "alice", "bob")
	if !Handlers.ArrayContains(alice.Friends, "bob") {
		t.Errorf("not friends after accept: %+v", alice)
	}

	if _, err := sendTransition(alice, bob, "alice", "bob"); err != errAlreadyFriends {
		t.Errorf("send to friend err = %v", err)
	}
}

func TestCrossedSendAccepts(t *testing.T) {
	alice, bob := newUsers()
	if _, err := sendTransition(alice, bob, "alice", "bob"); err != nil {
		t.Fatal(err)
	}
	accepted, err := sendTransition(bob, alice, "bob", "alice")
	if err != nil || !accepted {
		t.Fatalf("crossed send = %v, %v", accepted, err)
	}
	consistent(t, alice, bob, "alice", "bob")
	if !Handlers.ArrayContains(bob.Friends, "alice") {
		t.Errorf("crossed send should befriend: %+v", bob)
	}
}

func TestAcceptWithoutRequest(t *testing.T) {
	alice, bob := newUsers()
	if err := acceptTransition(alice, bob, "alice", "bob"); err != errNoRequest {
		t.Errorf("err = %v", err)
	}
	if len(alice.Friends) != 0 || len(bob.Friends) != 0 {
		t.Error("failed accept changed state")
	}
}

func TestDeclineAndRevoke(t *testing.T) {
	alice, bob := newUsers()
	_, _ = sendTransition(alice, bob, "alice", "bob")
	if err := declineTransition(bob, alice, "bob", "alice"); err != nil {
		t.Fatal(err)
	}
	consistent(t, alice, bob, "alice", "bob")
	if len(alice.FriendReqSent) != 0 || len(bob.FriendReqRec) != 0 {
		t.Errorf("decline left requests: %+v %+v", alice, bob)
	}
	if err := declineTransition(bob, alice, "bob", "alice"); err != errNoRequest {
		t.Errorf("second decline err = %v", err)
	}

	_, _ = sendTransition(alice, bob, "alice", "bob")
	if err := revokeTransition(bob, alice, "bob", "alice"); err != errNoSentRequest {
		t.Errorf("revoke by receiver err = %v", err)
	}
	if err := revokeTransition(alice, bob, "alice", "bob"); err != nil {
		t.Fatal(err)
	}
	consistent(t, alice, bob, "alice", "bob")
	if len(alice.FriendReqSent) != 0 || len(bob.FriendReqRec) != 0 {
		t.Errorf("revoke left requests: %+v %+v", alice, bob)
	}
}

func TestRemoveFriend(t *testing.T) {
	alice, bob := newUsers()
	if err := removeTransition(alice, bob, "alice", "bob"); err != errNotFriends {
		t.Errorf("err = %v", err)
	}
	_, _ = sendTransition(alice, bob, "alice", "bob")
	_ = acceptTransition(bob, alice, "bob", "alice")

	if err := removeTransition(bob, alice, "bob", "alice"); err != nil {
		t.Fatal(err)
	}
	consistent(t, alice, bob, "alice", "bob")
	if len(alice.Friends) != 0 || len(bob.Friends) != 0 {
		t.Errorf("remove left friends: %+v %+v", alice, bob)
	}
}

func TestRemoveHalfFriendship(t *testing.T) {
	alice, bob := newUsers()
	alice.Friends = []string{"bob"}
	if err := removeTransition(bob, alice, "bob", "alice"); err != nil {
		t.Fatal(err)
	}
	consistent(t, alice, bob, "alice", "bob")
}

func TestRunPairRejectsSelf(t *testing.T) {
	f := &FriendHandler{}
	if err := f.runPair(context.Background(), "alice", "alice", acceptTransition); err != errSelfRequest {
		t.Errorf("err = %v", err)
	}
}

func TestFriendStatus(t *testing.T) {
	if code, _ := friendStatus(nil); code != http.StatusOK {
		t.Errorf("nil: %d", code)
	}
	if code, message := friendStatus(errNoFriend); code != http.StatusNotFound || message != "friend doesn't exist" {
		t.Errorf("errNoFriend: %d %q", code, message)
	}
	if code, _ := friendStatus(errors.New("boom")); code != http.StatusInternalServerError {
		t.Errorf("other: %d", code)
	}
}

func TestFriendWrapperRequiresFriendId(t *testing.T) {
	f := &FriendHandler{AuthHandler: fakeVerifier{"token": "alice"}}
	req := httptest.NewRequest("POST", "/friends/send", nil)
	req.Header.Set("Authorization", "Bearer token")
	rr := httptest.NewRecorder()
	f.SendRequestWrapper(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("code = %d, want 400", rr.Code)
	}
}

func TestFriendWrapperSelfRequest(t *testing.T) {
	f := &FriendHandler{AuthHandler: fakeVerifier{"token": "alice"}}
	req := httptest.NewRequest("POST", "/friends/send?friendId=alice", nil)
	req.Header.Set("Authorization", "Bearer token")
	rr := httptest.NewRecorder()
	f.SendRequestWrapper(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("code = %d, want 400", rr.Code)
	}
}
