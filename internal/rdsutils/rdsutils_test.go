package rdsutils

import "testing"

func TestIsClusterEndpoint(t *testing.T) {
	cases := []struct {
		host string
		want bool
	}{
		{"mycluster.cluster-cabcdefghij.us-east-1.rds.amazonaws.com", true},
		{"mycluster.cluster-ro-cabcdefghij.us-east-1.rds.amazonaws.com", true},
		{"MyCluster.Cluster-CABCDEFGHIJ.US-EAST-1.RDS.AMAZONAWS.COM", true},
		{"myinstance.cabcdefghij.us-east-1.rds.amazonaws.com", false},
		{"writer.cluster.example:5432", false},
		{"localhost", false},
		{"10.0.0.5", false},
		{"", false},
	}

	for _, tc := range cases {
		if got := IsClusterEndpoint(tc.host); got != tc.want {
			t.Errorf("IsClusterEndpoint(%q) = %v, want %v", tc.host, got, tc.want)
		}
	}
}
