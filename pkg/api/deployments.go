// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package api

import (
	"errors"
	"net/http"

	"github.com/ethersphere/lottery/pkg/deploy"
	"github.com/ethersphere/lottery/pkg/jsonhttp"
	"github.com/gorilla/mux"
)

type deploymentsResponse struct {
	Deployments []deploy.Deployment `json:"deployments"`
}

func (s *Service) deploymentsHandler(w http.ResponseWriter, _ *http.Request) {
	ds, err := s.deployments.All()
	if err != nil {
		s.logger.Debug("deployments: list failed", "error", err)
		s.logger.Error(nil, "deployments: list failed")
		jsonhttp.InternalServerError(w, "cannot list deployments")
		return
	}
	if ds == nil {
		ds = []deploy.Deployment{}
	}
	jsonhttp.OK(w, deploymentsResponse{Deployments: ds})
}

func (s *Service) deploymentHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	d, err := s.deployments.Get(name)
	if err != nil {
		if errors.Is(err, deploy.ErrDeploymentNotFound) {
			jsonhttp.NotFound(w, "deployment not found")
			return
		}
		s.logger.Debug("deployment: get failed", "name", name, "error", err)
		s.logger.Error(nil, "deployment: get failed")
		jsonhttp.InternalServerError(w, "cannot get deployment")
		return
	}
	jsonhttp.OK(w, d)
}
