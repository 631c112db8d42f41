// Hand-maintained stubs for the auth-service proto (auth.proto). Only the
// client surface this service consumes is kept; regenerate with protoc-gen-go
// if the upstream contract grows.
package auth

import (
	context "context"
	fmt "fmt"

	grpc "google.golang.org/grpc"
)

type ValidateTokenRequest struct {
	Token string `protobuf:"bytes,1,opt,name=token,proto3" json:"token,omitempty"`
}

func (m *ValidateTokenRequest) Reset()         { *m = ValidateTokenRequest{} }
func (m *ValidateTokenRequest) String() string { return fmt.Sprintf("%+v", *m) }
func (*ValidateTokenRequest) ProtoMessage()    {}

func (m *ValidateTokenRequest) GetToken() string {
	if m != nil {
		return m.Token
	}
	return ""
}

type ValidateTokenResponse struct {
	Valid  bool  `protobuf:"varint,1,opt,name=valid,proto3" json:"valid,omitempty"`
	UserId int64 `protobuf:"varint,2,opt,name=user_id,json=userId,proto3" json:"user_id,omitempty"`
}

func (m *ValidateTokenResponse) Reset()         { *m = ValidateTokenResponse{} }
func (m *ValidateTokenResponse) String() string { return fmt.Sprintf("%+v", *m) }
func (*ValidateTokenResponse) ProtoMessage()    {}

func (m *ValidateTokenResponse) GetValid() bool {
	if m != nil {
		return m.Valid
	}
	return false
}

func (m *ValidateTokenResponse) GetUserId() int64 {
	if m != nil {
		return m.UserId
	}
	return 0
}

type GetUserRequest struct {
	UserId int64 `protobuf:"varint,1,opt,name=user_id,json=userId,proto3" json:"user_id,omitempty"`
}

func (m *GetUserRequest) Reset()         { *m = GetUserRequest{} }
func (m *GetUserRequest) String() string { return fmt.Sprintf("%+v", *m) }
func (*GetUserRequest) ProtoMessage()    {}

func (m *GetUserRequest) GetUserId() int64 {
	if m != nil {
		return m.UserId
	}
	return 0
}

type User struct {
	Id        int64  `protobuf:"varint,1,opt,name=id,proto3" json:"id,omitempty"`
	Username  string `protobuf:"bytes,2,opt,name=username,proto3" json:"username,omitempty"`
	FirstName string `protobuf:"bytes,3,opt,name=first_name,json=firstName,proto3" json:"first_name,omitempty"`
	LastName  string `protobuf:"bytes,4,opt,name=last_name,json=lastName,proto3" json:"last_name,omitempty"`
}

func (m *User) Reset()         { *m = User{} }
func (m *User) String() string { return fmt.Sprintf("%+v", *m) }
func (*User) ProtoMessage()    {}

func (m *User) GetId() int64 {
	if m != nil {
		return m.Id
	}
	return 0
}

func (m *User) GetUsername() string {
	if m != nil {
		return m.Username
	}
	return ""
}

func (m *User) GetFirstName() string {
	if m != nil {
		return m.FirstName
	}
	return ""
}

func (m *User) GetLastName() string {
	if m != nil {
		return m.LastName
	}
	return ""
}

type BulkUsersRequest struct {
	Ids []int64 `protobuf:"varint,1,rep,packed,name=ids,proto3" json:"ids,omitempty"`
}

func (m *BulkUsersRequest) Reset()         { *m = BulkUsersRequest{} }
func (m *BulkUsersRequest) String() string { return fmt.Sprintf("%+v", *m) }
func (*BulkUsersRequest) ProtoMessage()    {}

func (m *BulkUsersRequest) GetIds() []int64 {
	if m != nil {
		return m.Ids
	}
	return nil
}

type BulkUsersResponse struct {
	Users []*User `protobuf:"bytes,1,rep,name=users,proto3" json:"users,omitempty"`
}

func (m *BulkUsersResponse) Reset()         { *m = BulkUsersResponse{} }
func (m *BulkUsersResponse) String() string { return fmt.Sprintf("%+v", *m) }
func (*BulkUsersResponse) ProtoMessage()    {}

func (m *BulkUsersResponse) GetUsers() []*User {
	if m != nil {
		return m.Users
	}
	return nil
}

type ListUsersRequest struct {
	ExcludeId int64 `protobuf:"varint,1,opt,name=exclude_id,json=excludeId,proto3" json:"exclude_id,omitempty"`
}

func (m *ListUsersRequest) Reset()         { *m = ListUsersRequest{} }
func (m *ListUsersRequest) String() string { return fmt.Sprintf("%+v", *m) }
func (*ListUsersRequest) ProtoMessage()    {}

func (m *ListUsersRequest) GetExcludeId() int64 {
	if m != nil {
		return m.ExcludeId
	}
	return 0
}

type ListUsersResponse struct {
	Users []*User `protobuf:"bytes,1,rep,name=users,proto3" json:"users,omitempty"`
}

func (m *ListUsersResponse) Reset()         { *m = ListUsersResponse{} }
func (m *ListUsersResponse) String() string { return fmt.Sprintf("%+v", *m) }
func (*ListUsersResponse) ProtoMessage()    {}

func (m *ListUsersResponse) GetUsers() []*User {
	if m != nil {
		return m.Users
	}
	return nil
}

// AuthServiceClient is the client API for the AuthService service.
type AuthServiceClient interface {
	ValidateToken(ctx context.Context, in *ValidateTokenRequest, opts ...grpc.CallOption) (*ValidateTokenResponse, error)
	GetUser(ctx context.Context, in *GetUserRequest, opts ...grpc.CallOption) (*User, error)
	BulkUsers(ctx context.Context, in *BulkUsersRequest, opts ...grpc.CallOption) (*BulkUsersResponse, error)
	ListUsers(ctx context.Context, in *ListUsersRequest, opts ...grpc.CallOption) (*ListUsersResponse, error)
}

type authServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewAuthServiceClient(cc grpc.ClientConnInterface) AuthServiceClient {
	return &authServiceClient{cc}
}

func (c *authServiceClient) ValidateToken(ctx context.Context, in *ValidateTokenRequest, opts ...grpc.CallOption) (*ValidateTokenResponse, error) {
	out := new(ValidateTokenResponse)
	err := c.cc.Invoke(ctx, "/auth.AuthService/ValidateToken", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *authServiceClient) GetUser(ctx context.Context, in *GetUserRequest, opts ...grpc.CallOption) (*User, error) {
	out := new(User)
	err := c.cc.Invoke(ctx, "/auth.AuthService/GetUser", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *authServiceClient) BulkUsers(ctx context.Context, in *BulkUsersRequest, opts ...grpc.CallOption) (*BulkUsersResponse, error) {
	out := new(BulkUsersResponse)
	err := c.cc.Invoke(ctx, "/auth.AuthService/BulkUsers", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *authServiceClient) ListUsers(ctx context.Context, in *ListUsersRequest, opts ...grpc.CallOption) (*ListUsersResponse, error) {
	out := new(ListUsersResponse)
	err := c.cc.Invoke(ctx, "/auth.AuthService/ListUsers", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}
