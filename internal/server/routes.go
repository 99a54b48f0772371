package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (s Server) Router() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.maxBytesMw)
	api.Use(s.loggingMw)

	api.HandleFunc("/auth/register", s.userRegister()).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", s.userLogin()).Methods(http.MethodPost)

	userAPI := api.PathPrefix("/user").Subrouter()
	userAPI.Use(s.authMw)
	userAPI.HandleFunc("/logout", s.userLogout()).Methods(http.MethodPost)
	userAPI.HandleFunc("/info", s.userInfo()).Methods(http.MethodPost)
	userAPI.PathPrefix("").Handler(s.notFoundHandler())

	api.HandleFunc("/expiry-deals", s.dealGetAll()).Methods(http.MethodGet)
	api.HandleFunc("/expiry-deals", s.dealUpsert()).Methods(http.MethodPost)
	api.HandleFunc("/expiry-deals/{barcode}", s.dealGetOne()).Methods(http.MethodGet)

	api.HandleFunc("/user-rewards", s.activityList()).Methods(http.MethodGet)
	api.HandleFunc("/user-rewards", s.activitySubmit()).Methods(http.MethodPost)
	api.HandleFunc("/user-rewards", s.activityModerate()).Methods(http.MethodPut)
	api.HandleFunc("/user-rewards/redeem", s.rewardRedeem()).Methods(http.MethodPost)
	api.HandleFunc("/user-rewards/balance/{userID}", s.rewardBalance()).Methods(http.MethodGet)

	api.HandleFunc("/calculator", s.emissionEstimate()).Methods(http.MethodPost)
	api.HandleFunc("/packaging", s.packagingSuggest()).Methods(http.MethodPost)
	api.HandleFunc("/chat", s.chatMessage()).Methods(http.MethodPost)
	api.HandleFunc("/delivery-route", s.deliveryRoute()).Methods(http.MethodPost)

	api.PathPrefix("").Handler(s.notFoundHandler())

	return r
}
