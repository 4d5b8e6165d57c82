// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cloud. This file models Cloud Storage objects: the Pub/Sub finalize
// notification payload and the gs:// references accepted as video sources.
package cloud

import (
	"encoding/json"
	"fmt"
	"strings"
)

// GCSScheme prefixes Cloud Storage URIs.
const GCSScheme = "gs://"

// GCSPubSubNotification is the JSON payload of a Cloud Storage notification.
// Only the fields the trigger reads are mapped.
type GCSPubSubNotification struct {
	Kind        string `json:"kind"`
	ID          string `json:"id"`
	Name        string `json:"name"`
	Bucket      string `json:"bucket"`
	Generation  string `json:"generation"`
	ContentType string `json:"contentType"`
	Size        string `json:"size"`
	TimeCreated string `json:"timeCreated"`
}

// GCSObject identifies an object in a bucket.
type GCSObject struct {
	Bucket   string
	Name     string
	MIMEType string
}

// String returns the gs:// URI of the object.
func (o GCSObject) String() string {
	return GCSScheme + o.Bucket + "/" + o.Name
}

// IsGCSURI reports whether path is a gs:// reference.
func IsGCSURI(path string) bool {
	return strings.HasPrefix(path, GCSScheme)
}

// ParseGCSURI splits gs://bucket/object into its parts.
func ParseGCSURI(uri string) (GCSObject, error) {
	if !IsGCSURI(uri) {
		return GCSObject{}, fmt.Errorf("not a gs:// uri: %q", uri)
	}
	bucket, name, ok := strings.Cut(strings.TrimPrefix(uri, GCSScheme), "/")
	if !ok || bucket == "" || name == "" {
		return GCSObject{}, fmt.Errorf("gs:// uri needs a bucket and an object: %q", uri)
	}
	return GCSObject{Bucket: bucket, Name: name}, nil
}

// ParseGCSNotification decodes a finalize notification into an object.
func ParseGCSNotification(data []byte) (GCSObject, error) {
	var n GCSPubSubNotification
	if err := json.Unmarshal(data, &n); err != nil {
		return GCSObject{}, fmt.Errorf("failed to decode storage notification: %w", err)
	}
	if n.Bucket == "" || n.Name == "" {
		return GCSObject{}, fmt.Errorf("storage notification is missing bucket or name")
	}
	return GCSObject{Bucket: n.Bucket, Name: n.Name, MIMEType: n.ContentType}, nil
}
