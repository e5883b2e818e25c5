package domain

import (
	"bytes"
	"encoding/json"
)

// FlexString is a JSON field that the upstream API delivers sometimes
// as a string and sometimes as a bare number. null decodes to the
// empty string.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string { return string(f) }

// RawTaskMeta is the metaInfo sub-object of an upstream task record.
type RawTaskMeta struct {
	TimeFrom  FlexString `json:"timeFrom"`
	TimeTo    FlexString `json:"timeTo"`
	TaskLevel FlexString `json:"taskLevel"`
	Tags      FlexString `json:"tags"`
}

// RawTask mirrors one task record of the upstream taskListSelf payload.
type RawTask struct {
	Name       string      `json:"name"`
	Desc       string      `json:"desc"`
	Status     FlexString  `json:"status"`
	OwnerUser  string      `json:"ownerUser"`
	IsList     FlexString  `json:"isList"`
	ProjectID  FlexString  `json:"projectID"`
	CreateTime FlexString  `json:"createTime"`
	ModifyTime FlexString  `json:"modifyTime"`
	MetaInfo   RawTaskMeta `json:"metaInfo"`
}

// RawProject mirrors one project record of the upstream payload.
type RawProject struct {
	Name       string     `json:"name"`
	Desc       string     `json:"desc"`
	OwnerUser  string     `json:"ownerUser"`
	CreateTime FlexString `json:"createTime"`
	ModifyTime FlexString `json:"modifyTime"`
}
