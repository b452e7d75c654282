package entities

import "encoding/json"

// MetaData holds the instance identifiers embedded in a DICOM file.
type MetaData struct {
	StudyInstanceUID  string `json:"study_instance_uid,omitempty"`
	SeriesInstanceUID string `json:"series_instance_uid,omitempty"`
	SOPInstanceUID    string `json:"sop_instance_uid,omitempty"`
	PatientID         string `json:"patient_id,omitempty"`
	Modality          string `json:"modality,omitempty"`
}

func (meta *MetaData) String() string {
	b, _ := json.Marshal(meta)
	return string(b)
}
