// Package pb describes the location feed wire schema. The schema is small
// and stable, so its descriptor is assembled in Go rather than generated;
// messages travel as dynamicpb values that marshal identically to generated
// types, keeping the service wire-compatible with existing clients built
// from location.proto.
package pb

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

const (
	Package     = "opencv_object_tracking"
	ServiceName = Package + ".LocationServer"

	RegisterClientMethod = "/" + ServiceName + "/registerClient"
	GetLocationsMethod   = "/" + ServiceName + "/getLocations"
)

var (
	file protoreflect.FileDescriptor

	clientInfoDesc protoreflect.MessageDescriptor
	serverInfoDesc protoreflect.MessageDescriptor
	locationDesc   protoreflect.MessageDescriptor
)

func init() {
	fd, err := protodesc.NewFile(fileDescriptorProto(), nil)
	if err != nil {
		panic(fmt.Sprintf("pb: invalid location schema: %v", err))
	}
	file = fd
	msgs := fd.Messages()
	clientInfoDesc = msgs.ByName("ClientInfo")
	serverInfoDesc = msgs.ByName("ServerInfo")
	locationDesc = msgs.ByName("Location")
}

func fileDescriptorProto() *descriptorpb.FileDescriptorProto {
	stringField := func(name string, num int32) *descriptorpb.FieldDescriptorProto {
		return &descriptorpb.FieldDescriptorProto{
			Name:     proto.String(name),
			JsonName: proto.String(name),
			Number:   proto.Int32(num),
			Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
			Type:     descriptorpb.FieldDescriptorProto_TYPE_STRING.Enum(),
		}
	}
	int32Field := func(name, jsonName string, num int32) *descriptorpb.FieldDescriptorProto {
		return &descriptorpb.FieldDescriptorProto{
			Name:     proto.String(name),
			JsonName: proto.String(jsonName),
			Number:   proto.Int32(num),
			Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
			Type:     descriptorpb.FieldDescriptorProto_TYPE_INT32.Enum(),
		}
	}
	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String("location.proto"),
		Package: proto.String(Package),
		Syntax:  proto.String("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{
			{Name: proto.String("ClientInfo"), Field: []*descriptorpb.FieldDescriptorProto{stringField("info", 1)}},
			{Name: proto.String("ServerInfo"), Field: []*descriptorpb.FieldDescriptorProto{stringField("info", 1)}},
			{
				Name: proto.String("Location"),
				Field: []*descriptorpb.FieldDescriptorProto{
					int32Field("x", "x", 1),
					int32Field("y", "y", 2),
					int32Field("width", "width", 3),
					int32Field("height", "height", 4),
					int32Field("middle_inc", "middleInc", 5),
				},
			},
		},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name: proto.String("LocationServer"),
			Method: []*descriptorpb.MethodDescriptorProto{
				{
					Name:       proto.String("registerClient"),
					InputType:  proto.String("." + Package + ".ClientInfo"),
					OutputType: proto.String("." + Package + ".ServerInfo"),
				},
				{
					Name:            proto.String("getLocations"),
					InputType:       proto.String("." + Package + ".ClientInfo"),
					OutputType:      proto.String("." + Package + ".Location"),
					ServerStreaming: proto.Bool(true),
				},
			},
		}},
	}
}

// File returns the schema descriptor, e.g. for reflection or docs.
func File() protoreflect.FileDescriptor { return file }

// ClientInfo identifies a caller of registerClient / getLocations.
type ClientInfo struct {
	Info string
}

// ServerInfo is the registerClient reply.
type ServerInfo struct {
	Info string
}

// Location mirrors the Location message. All fields are int32 on the wire.
type Location struct {
	X         int32
	Y         int32
	Width     int32
	Height    int32
	MiddleInc int32
}

// NewClientInfoMessage returns an empty dynamic ClientInfo for decoding.
func NewClientInfoMessage() *dynamicpb.Message { return dynamicpb.NewMessage(clientInfoDesc) }

// NewServerInfoMessage returns an empty dynamic ServerInfo for decoding.
func NewServerInfoMessage() *dynamicpb.Message { return dynamicpb.NewMessage(serverInfoDesc) }

// NewLocationMessage returns an empty dynamic Location for decoding.
func NewLocationMessage() *dynamicpb.Message { return dynamicpb.NewMessage(locationDesc) }

func (c ClientInfo) Message() *dynamicpb.Message {
	m := NewClientInfoMessage()
	setString(m, "info", c.Info)
	return m
}

func (s ServerInfo) Message() *dynamicpb.Message {
	m := NewServerInfoMessage()
	setString(m, "info", s.Info)
	return m
}

func (l Location) Message() *dynamicpb.Message {
	m := NewLocationMessage()
	setInt32(m, "x", l.X)
	setInt32(m, "y", l.Y)
	setInt32(m, "width", l.Width)
	setInt32(m, "height", l.Height)
	setInt32(m, "middle_inc", l.MiddleInc)
	return m
}

// ClientInfoFrom reads a decoded ClientInfo message.
func ClientInfoFrom(m protoreflect.ProtoMessage) ClientInfo {
	return ClientInfo{Info: getString(m, "info")}
}

// ServerInfoFrom reads a decoded ServerInfo message.
func ServerInfoFrom(m protoreflect.ProtoMessage) ServerInfo {
	return ServerInfo{Info: getString(m, "info")}
}

// LocationFrom reads a decoded Location message.
func LocationFrom(m protoreflect.ProtoMessage) Location {
	return Location{
		X:         getInt32(m, "x"),
		Y:         getInt32(m, "y"),
		Width:     getInt32(m, "width"),
		Height:    getInt32(m, "height"),
		MiddleInc: getInt32(m, "middle_inc"),
	}
}

func setString(m *dynamicpb.Message, name, v string) {
	m.Set(m.Descriptor().Fields().ByName(protoreflect.Name(name)), protoreflect.ValueOfString(v))
}

func setInt32(m *dynamicpb.Message, name string, v int32) {
	m.Set(m.Descriptor().Fields().ByName(protoreflect.Name(name)), protoreflect.ValueOfInt32(v))
}

func getString(m protoreflect.ProtoMessage, name string) string {
	r := m.ProtoReflect()
	fd := r.Descriptor().Fields().ByName(protoreflect.Name(name))
	if fd == nil {
		return ""
	}
	return r.Get(fd).String()
}

func getInt32(m protoreflect.ProtoMessage, name string) int32 {
	r := m.ProtoReflect()
	fd := r.Descriptor().Fields().ByName(protoreflect.Name(name))
	if fd == nil {
		return 0
	}
	return int32(r.Get(fd).Int())
}
